package service

import (
	"cfstudy/internal/cache"
	"cfstudy/internal/model"
	"cfstudy/internal/repository"
	"context"
	"sort"
	"sync"
)

// memRepo is an in-memory CounterfactualRepo with the same revision rules as
// the Mongo implementation.
type memRepo struct {
	mu      sync.Mutex
	records map[model.RecordKey]*model.CounterfactualRecord

	gets, sets, updates int
	getErr, writeErr    error

	// beforeUpdate runs once per Update call before the revision check
	beforeUpdate func(r *memRepo, key model.RecordKey)
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[model.RecordKey]*model.CounterfactualRecord)}
}

// put stores rec as-is, bypassing counters
func (r *memRepo) put(key model.RecordKey, rec *model.CounterfactualRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := rec.Clone()
	c.Key = key
	r.records[key] = c
}

func (r *memRepo) stored(key model.RecordKey) *model.CounterfactualRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[key].Clone()
}

func (r *memRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets + r.updates
}

func (r *memRepo) Get(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.records[key].Clone(), nil
}

func (r *memRepo) Set(ctx context.Context, key model.RecordKey, rec *model.CounterfactualRecord, expectedRevision int64) (*model.CounterfactualRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets++
	if r.writeErr != nil {
		return nil, r.writeErr
	}
	existing := r.records[key]
	var revision int64
	if existing != nil {
		revision = existing.Revision
	}
	if expectedRevision != repository.AnyRevision && (existing == nil || revision != expectedRevision) {
		return nil, repository.ErrRevisionConflict
	}
	next := rec.Clone()
	next.Key = key
	next.Revision = revision + 1
	r.records[key] = next
	return next.Clone(), nil
}

func (r *memRepo) Update(ctx context.Context, key model.RecordKey, patch model.RecordPatch, expectedRevision int64) (*model.CounterfactualRecord, error) {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook(r, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.writeErr != nil {
		return nil, r.writeErr
	}
	existing := r.records[key]
	if existing == nil {
		if expectedRevision == repository.AnyRevision {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrRevisionConflict
	}
	if expectedRevision != repository.AnyRevision && existing.Revision != expectedRevision {
		return nil, repository.ErrRevisionConflict
	}

	next := existing.Clone()
	if patch.Ratings != nil {
		next.Ratings = append([]int(nil), patch.Ratings...)
	}
	if patch.ClearSelection {
		next.SelectedAlternative = nil
	} else if patch.Selection != nil {
		next.SelectedAlternative = (&model.CounterfactualRecord{SelectedAlternative: patch.Selection}).Clone().SelectedAlternative
	}
	next.Revision++
	r.records[key] = next
	return next.Clone(), nil
}

func (r *memRepo) Scan(ctx context.Context, fn func(model.RecordKey) error) error {
	r.mu.Lock()
	keys := make([]model.RecordKey, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

type broadcast struct {
	userID  string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []broadcast
}

func (b *recordingBroadcaster) BroadcastToUser(userID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, broadcast{userID, msgType, payload})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.msgs))
	for i, m := range b.msgs {
		out[i] = m.msgType
	}
	return out
}

type fakeGenerator struct {
	mu          sync.Mutex
	generate    func(in GenerateInput) (*GenerateOutput, error)
	healthy     bool
	calls       int
	healthCalls int
	lastInput   GenerateInput
}

func (g *fakeGenerator) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	g.mu.Lock()
	g.calls++
	g.lastInput = in
	fn := g.generate
	g.mu.Unlock()
	return fn(in)
}

func (g *fakeGenerator) Health(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.healthCalls++
	return g.healthy
}

type memHealthCache struct {
	status *cache.HealthStatus
}

func (c *memHealthCache) Get(ctx context.Context) (*cache.HealthStatus, error) {
	return c.status, nil
}

func (c *memHealthCache) Set(ctx context.Context, status *cache.HealthStatus) error {
	c.status = status
	return nil
}

type memParticipants struct {
	mu    sync.Mutex
	byID  map[string]*model.Participant
	err   error
	reads int
}

func (r *memParticipants) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *memParticipants) Upsert(ctx context.Context, p *model.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *p
	r.byID[p.ID] = &out
	return nil
}

type memConditionCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (c *memConditionCache) Get(ctx context.Context, userID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[userID]
	return v, ok, nil
}

func (c *memConditionCache) Set(ctx context.Context, userID, condition string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[userID] = condition
	return nil
}

func (c *memConditionCache) Delete(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, userID)
	return nil
}

func (c *memConditionCache) value(userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[userID]
	return v, ok
}
