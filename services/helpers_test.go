package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireAppError asserts err is an *apperrors.Error of the given kind and, if set, code
func requireAppError(t *testing.T, err error, kind apperrors.Kind, code string) *apperrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr), "expected *apperrors.Error, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind, appErr.Message)
	if code != "" {
		require.Equal(t, code, appErr.Code, appErr.Message)
	}
	return appErr
}

// mapCatalog is an in-memory MenuCatalog
type mapCatalog struct {
	mu      sync.Mutex
	items   map[uint]models.MenuItem
	lookups int
}

func newMapCatalog(items ...models.MenuItem) *mapCatalog {
	c := &mapCatalog{items: make(map[uint]models.MenuItem)}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *mapCatalog) Lookup(_ context.Context, id uint) (models.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	item, ok := c.items[id]
	if !ok {
		return models.MenuItem{}, apperrors.NotFound("menu item", strconv.Itoa(int(id)))
	}
	return item, nil
}

func (c *mapCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

// scriptedCodes hands out queued codes first, then random ones
type scriptedCodes struct {
	mu           sync.Mutex
	orders, txns []string
	random       RandomCodeGenerator
}

func (g *scriptedCodes) OrderCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.orders) == 0 {
		return g.random.OrderCode()
	}
	code := g.orders[0]
	g.orders = g.orders[1:]
	return code
}

func (g *scriptedCodes) TransactionCode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.txns) == 0 {
		return g.random.TransactionCode()
	}
	code := g.txns[0]
	g.txns = g.txns[1:]
	return code
}

// constantCodes always returns the same codes
type constantCodes struct{ order, txn string }

func (g constantCodes) OrderCode() string       { return g.order }
func (g constantCodes) TransactionCode() string { return g.txn }

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

// testClock advances one minute on every call
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

// newTestUpload builds a multipart file header holding content
func newTestUpload(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="evidence"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	require.Len(t, form.File["evidence"], 1)
	return form.File["evidence"][0]
}
