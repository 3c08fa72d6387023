package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/bakery-orders-api/config"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"github.com/kendall-kelly/bakery-orders-api/services"
	"github.com/kendall-kelly/bakery-orders-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	customerID = "auth0|customer"
	otherID    = "auth0|other"
	staffID    = "auth0|staff"
)

// apiFixture wires the real order service onto an in-memory database
type apiFixture struct {
	db        *gorm.DB
	images    *services.MockImageService
	croissant *models.MenuItem
	coffee    *models.MenuItem
	tart      *models.MenuItem
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	f := &apiFixture{db: db, images: services.NewMockImageService()}
	services.SetOrderService(services.NewOrderService(db, services.OrderServiceOptions{
		Catalog:     services.NewDBMenuCatalog(db),
		Images:      f.images,
		DeliveryFee: decimal.RequireFromString("50.00"),
	}))
	t.Cleanup(func() {
		config.SetDB(nil)
		services.SetOrderService(nil)
	})

	testutil.CreateUser(t, db, customerID, models.RoleCustomer)
	testutil.CreateUser(t, db, otherID, models.RoleCustomer)
	testutil.CreateUser(t, db, staffID, models.RoleStaff)

	f.croissant = testutil.CreateMenuItem(t, db, "Chocolate Croissant", "25.99", true)
	f.coffee = testutil.CreateMenuItem(t, db, "Filter Coffee", "3.50", true)
	f.tart = testutil.CreateMenuItem(t, db, "Seasonal Tart", "12.00", false)
	return f
}

// router serves the API as auth0ID; an empty id sends anonymous requests
func (f *apiFixture) router(auth0ID string) *gin.Engine {
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), testutil.MockAuthMiddleware(auth0ID, ""))
	return router
}

// do sends a JSON request as auth0ID
func (f *apiFixture) do(t *testing.T, auth0ID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router(auth0ID).ServeHTTP(w, req)
	return w
}

// doMultipart sends form fields and an optional "evidence" file as auth0ID
func (f *apiFixture) doMultipart(t *testing.T, auth0ID, path string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("evidence", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	f.router(auth0ID).ServeHTTP(w, req)
	return w
}

// placeOrder places the standard croissant and coffee order for auth0ID
func (f *apiFixture) placeOrder(t *testing.T, auth0ID, method string) orderJSON {
	t.Helper()

	w := f.do(t, auth0ID, http.MethodPost, "/api/v1/orders", gin.H{
		"items": []gin.H{
			{"menu_item_id": f.croissant.ID, "quantity": 1, "price": "25.99"},
			{"menu_item_id": f.coffee.ID, "quantity": 2, "price": "3.50"},
		},
		"delivery_address": "12 Baker Street",
		"delivery_phone":   "5550100",
		"payment_method":   method,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order orderJSON
	decodeData(t, w, &order)
	return order
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

type paymentJSON struct {
	TransactionID     string          `json:"transaction_id"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentStatus     string          `json:"payment_status"`
	Amount            decimal.Decimal `json:"amount"`
	EvidenceKey       *string         `json:"evidence_key"`
	EvidenceURL       *string         `json:"evidence_url"`
	VerificationNotes string          `json:"verification_notes"`
	PaidAt            *string         `json:"paid_at"`
}

type orderJSON struct {
	OrderCode       string          `json:"order_code"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	DeliveryAddress string          `json:"delivery_address"`
	Items           []struct {
		MenuItemID uint `json:"menu_item_id"`
		Quantity   int  `json:"quantity"`
	} `json:"items"`
	Payment *paymentJSON `json:"payment"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// requireError asserts the status and error envelope of a failed request
func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code, reason string) envelope {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.False(t, env.Success)
	require.Equal(t, code, env.Error.Code, env.Error.Message)
	if reason != "" {
		require.Equal(t, reason, env.Error.Reason, env.Error.Message)
	}
	return env
}
