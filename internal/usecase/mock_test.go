//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/domain/ports/adapter"
	"openkeywords/internal/infra/worker"
)

// --- Mock AI

// MockAI answers each pipeline stage with its own handler and records prompts.
type MockAI struct {
	mu       sync.Mutex
	Handlers map[string]func(req adapter.GenerateRequest) (string, error)
	Calls    map[string]int
	Prompts  map[string][]string
}

func NewMockAI() *MockAI {
	return &MockAI{
		Handlers: map[string]func(adapter.GenerateRequest) (string, error){},
		Calls:    map[string]int{},
		Prompts:  map[string][]string{},
	}
}

// On registers a fixed response for a stage.
func (m *MockAI) On(stage, response string) *MockAI {
	m.Handlers[stage] = func(adapter.GenerateRequest) (string, error) { return response, nil }
	return m
}

func (m *MockAI) Fail(stage string, err error) *MockAI {
	m.Handlers[stage] = func(adapter.GenerateRequest) (string, error) { return "", err }
	return m
}

func (m *MockAI) Provider() string { return "mock" }

func (m *MockAI) CountTokens(ctx context.Context, model string, prompt string) (int, error) {
	return len(prompt) / 4, nil
}

func (m *MockAI) Generate(ctx context.Context, req adapter.GenerateRequest) (string, adapter.Usage, error) {
	m.mu.Lock()
	m.Calls[req.Stage]++
	m.Prompts[req.Stage] = append(m.Prompts[req.Stage], req.Prompt)
	h := m.Handlers[req.Stage]
	m.mu.Unlock()
	if h == nil {
		return "", adapter.Usage{}, errors.New("no handler for stage " + req.Stage)
	}
	text, err := h(req)
	return text, adapter.Usage{}, err
}

func (m *MockAI) CallCount(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[stage]
}

// --- Mock volume lookup

type MockVolumes struct {
	Data map[string]adapter.VolumeData
	Err  error
	Got  []string
}

func (m *MockVolumes) LookupVolumes(ctx context.Context, keywords []string, region string) (map[string]adapter.VolumeData, error) {
	m.Got = append([]string(nil), keywords...)
	return m.Data, m.Err
}

type MockGaps struct {
	Keywords []adapter.GapKeyword
	Domain   string
}

func (m *MockGaps) ContentGap(ctx context.Context, domain string, competitors []string, region string) ([]adapter.GapKeyword, error) {
	m.Domain = domain
	return m.Keywords, nil
}

// --- Mock generator

type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req model.KeywordRequest) (*model.GenerationResult, error)
}

func (m *MockGenerator) Generate(ctx context.Context, req model.KeywordRequest) (*model.GenerationResult, error) {
	return m.GenerateFunc(ctx, req)
}

// --- Queues

// InlineQueue runs tasks synchronously on Submit.
type InlineQueue struct{}

func (InlineQueue) Submit(task worker.Task) error { return task(context.Background()) }

// FullQueue rejects everything.
type FullQueue struct{}

func (FullQueue) Submit(worker.Task) error { return domain.ErrQueueFull }

// --- Mock archive

type MockArchive struct {
	mu   sync.Mutex
	Jobs map[string]*model.GenerationJob
	Err  error
}

func NewMockArchive() *MockArchive { return &MockArchive{Jobs: map[string]*model.GenerationJob{}} }

func (a *MockArchive) Save(ctx context.Context, job *model.GenerationJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Jobs[job.ID] = job.Snapshot()
	return nil
}

func (a *MockArchive) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, ok := a.Jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Snapshot(), nil
}

func (a *MockArchive) Delete(ctx context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return false, a.Err
	}
	_, ok := a.Jobs[id]
	delete(a.Jobs, id)
	return ok, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
