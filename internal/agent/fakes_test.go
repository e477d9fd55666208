package agent

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/avvvet/foodbuddy-agent/internal/llm"
	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// scriptedProvider answers by system prompt so each stage can be steered
// independently.
type scriptedProvider struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []*llm.LLMRequest
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		replies: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (p *scriptedProvider) on(systemPrompt, reply string) *scriptedProvider {
	p.replies[systemPrompt] = reply
	return p
}

func (p *scriptedProvider) fail(systemPrompt string, err error) *scriptedProvider {
	p.errs[systemPrompt] = err
	return p
}

func (p *scriptedProvider) Generate(_ context.Context, req *llm.LLMRequest) (*llm.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)
	if err, ok := p.errs[req.SystemPrompt]; ok {
		return nil, err
	}
	return &llm.LLMResponse{Content: p.replies[req.SystemPrompt]}, nil
}

func (p *scriptedProvider) callsFor(systemPrompt string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, c := range p.calls {
		if c.SystemPrompt == systemPrompt {
			n++
		}
	}
	return n
}

func (p *scriptedProvider) totalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakePlaces struct {
	results     []models.Restaurant
	details     map[string]*models.PlaceDetails
	searchErr   error
	searchCalls int
	detailCalls []string
}

func (f *fakePlaces) Search(_ context.Context, _ string) ([]models.Restaurant, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakePlaces) Details(_ context.Context, placeID string) (*models.PlaceDetails, error) {
	f.detailCalls = append(f.detailCalls, placeID)
	return f.details[placeID], nil
}

type fakeRecipes struct {
	recipes     []models.Recipe
	findCalls   [][]string
	searchCalls []models.SearchCriteria
	idCalls     []string
	titleCalls  []string
}

func (f *fakeRecipes) Find(_ context.Context, ingredients []string, _ *string, _ *int) ([]models.Recipe, error) {
	f.findCalls = append(f.findCalls, ingredients)
	return f.recipes, nil
}

func (f *fakeRecipes) Search(_ context.Context, criteria models.SearchCriteria) ([]models.Recipe, error) {
	f.searchCalls = append(f.searchCalls, criteria)
	return f.recipes, nil
}

func (f *fakeRecipes) ByID(_ context.Context, id string) (*models.Recipe, error) {
	f.idCalls = append(f.idCalls, id)
	for i := range f.recipes {
		if f.recipes[i].ID == id {
			r := f.recipes[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRecipes) ByTitle(_ context.Context, title string) ([]models.Recipe, error) {
	f.titleCalls = append(f.titleCalls, title)
	var out []models.Recipe
	for _, r := range f.recipes {
		if strings.Contains(strings.ToLower(r.Title), strings.ToLower(title)) {
			out = append(out, r)
		}
	}
	return out, nil
}

var errTimeout = errors.New("context deadline exceeded")

func userMsg(content string) models.ConversationMessage {
	return models.ConversationMessage{SessionID: "s1", UserID: "u1", Role: models.RoleUser, Content: content}
}

func assistantMsg(content string) models.ConversationMessage {
	return models.ConversationMessage{SessionID: "s1", UserID: "u1", Role: models.RoleAssistant, Content: content}
}

func sampleRecipes(n int) []models.Recipe {
	out := make([]models.Recipe, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Recipe{
			ID:    "r" + string(rune('a'+i)),
			Title: "Pasta " + string(rune('A'+i)),
		})
	}
	return out
}
