package usecase_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/calcula-ai/price-bot/internal/models"
	"github.com/calcula-ai/price-bot/internal/repo/pricingapi"
)

// fakeKV is an in-memory stand-in for the mongo-backed key-value store.
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return models.ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeKV) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

type addPriceCall struct {
	SessionID string
	Name      string
	Value     float64
	Quantity  int
}

type uploadCall struct {
	pricingapi.UploadImageInput
}

// fakePricing records every call and serves canned answers.
type fakePricing struct {
	createSessionID  string
	createSessionErr error
	snapshot         *models.SessionSnapshot
	getSessionErr    error
	addPriceErr      error
	deletePriceErr   error
	uploadErr        error

	addPriceCalls    []addPriceCall
	deletePriceCalls []string
	uploadCalls      []uploadCall
}

func (f *fakePricing) CreateSession(context.Context) (string, error) {
	return f.createSessionID, f.createSessionErr
}

func (f *fakePricing) GetSession(context.Context, string) (*models.SessionSnapshot, error) {
	return f.snapshot, f.getSessionErr
}

func (f *fakePricing) AddPrice(_ context.Context, sessionID, name string, value float64, quantity int) error {
	f.addPriceCalls = append(f.addPriceCalls, addPriceCall{
		SessionID: sessionID,
		Name:      name,
		Value:     value,
		Quantity:  quantity,
	})
	return f.addPriceErr
}

func (f *fakePricing) DeletePrice(_ context.Context, _, priceID string) error {
	f.deletePriceCalls = append(f.deletePriceCalls, priceID)
	return f.deletePriceErr
}

func (f *fakePricing) UploadPricesImage(_ context.Context, in pricingapi.UploadImageInput) error {
	f.uploadCalls = append(f.uploadCalls, uploadCall{in})
	return f.uploadErr
}

type sentMessage struct {
	To   string
	Text string
}

type fakeMessenger struct {
	sent []sentMessage
}

func (f *fakeMessenger) SendText(_ context.Context, to, text string) error {
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
	return nil
}

func (f *fakeMessenger) last() sentMessage {
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}
