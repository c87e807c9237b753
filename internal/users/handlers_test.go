package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validUserJSON = `{
	"email": "a@b.com",
	"firstName": "John",
	"lastName": "Doe",
	"birthDate": "1990-01-01",
	"address": "123 Main St",
	"phoneNumber": "+1234567890"
}`

func newTestRouter(store UserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlers(newTestService(store), zap.NewNop()).RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createViaAPI(t *testing.T, router *gin.Engine, body string) UserResponse {
	t.Helper()
	w := doRequest(router, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[UserResponse](t, w)
}

func TestCreateUserHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())

	w := doRequest(router, http.MethodPost, "/users", validUserJSON)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "a@b.com", body["email"])
	assert.Equal(t, "John", body["firstName"])
	assert.Equal(t, "Doe", body["lastName"])
	assert.Equal(t, "1990-01-01", body["birthDate"])
	assert.Equal(t, "123 Main St", body["address"])
	assert.Equal(t, "+1234567890", body["phoneNumber"])
	assert.NotContains(t, body, "isDeleted")
}

func TestCreateUserHandlerMinor(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())

	w := doRequest(router, http.MethodPost, "/users", `{
		"email": "kid@b.com",
		"firstName": "Kid",
		"lastName": "Doe",
		"birthDate": "2023-06-15"
	}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ValidationErrorResponse](t, w)
	assert.Equal(t, "BAD_REQUEST", resp.Status)
	assert.Contains(t, resp.Errors, "birthDate: User must be adult")
	assert.False(t, resp.Timestamp.IsZero())
}

func TestCreateUserHandlerInvalidPayloads(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "bad email",
			body:      `{"email":"nope","firstName":"A","lastName":"B","birthDate":"1990-01-01"}`,
			wantError: "email: must be a valid email address",
		},
		{
			name:      "missing fields",
			body:      `{"email":"a@b.com"}`,
			wantError: "firstName: required field",
		},
		{
			name:      "malformed json",
			body:      `{"email":`,
			wantError: "body: ",
		},
		{
			name:      "bad date format",
			body:      `{"email":"a@b.com","firstName":"A","lastName":"B","birthDate":"01/01/1990"}`,
			wantError: "body: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/users", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decode[ValidationErrorResponse](t, w)
			require.NotEmpty(t, resp.Errors)
			found := false
			for _, e := range resp.Errors {
				if strings.HasPrefix(e, tt.wantError) {
					found = true
				}
			}
			assert.True(t, found, "errors %v should contain %q", resp.Errors, tt.wantError)
		})
	}
}

func TestCreateUserHandlerDuplicateEmail(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	createViaAPI(t, router, validUserJSON)

	w := doRequest(router, http.MethodPost, "/users", validUserJSON)
	require.Equal(t, http.StatusConflict, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "CONFLICT", resp.Status)
	assert.Equal(t, ConflictMessageEmail, resp.Message)
}

func TestGetUserHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	created := createViaAPI(t, router, validUserJSON)

	w := doRequest(router, http.MethodGet, "/users/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode[UserResponse](t, w))

	w = doRequest(router, http.MethodGet, "/users/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"id: must be a valid UUID"}, decode[ValidationErrorResponse](t, w).Errors)
}

func TestListUsersHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())

	w := doRequest(router, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	createViaAPI(t, router, validUserJSON)
	w = doRequest(router, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]UserResponse](t, w), 1)
}

func TestPartialUpdateUserHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	created := createViaAPI(t, router, validUserJSON)

	w := doRequest(router, http.MethodPatch, "/users/"+created.ID.String(), `{"firstName":"Jane"}`)
	require.Equal(t, http.StatusOK, w.Code)

	updated := decode[UserResponse](t, w)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, created.LastName, updated.LastName)
	assert.Equal(t, created.Email, updated.Email)

	w = doRequest(router, http.MethodPatch, "/users/"+created.ID.String(), `{"email":"broken"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"email: must match email pattern"}, decode[ValidationErrorResponse](t, w).Errors)
}

func TestPartialUpdateUserHandlerNotFound(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	id := uuid.New()

	w := doRequest(router, http.MethodPatch, "/users/"+id.String(), `{"firstName":"Jane"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "NOT_FOUND", resp.Status)
	assert.Equal(t, "Can't find user with id "+id.String(), resp.Message)
}

func TestReplaceUserHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	created := createViaAPI(t, router, validUserJSON)

	w := doRequest(router, http.MethodPut, "/users/"+created.ID.String(),
		`{"email":"new@b.com","firstName":"Max","lastName":"Power","birthDate":"1970-03-03"}`)
	require.Equal(t, http.StatusOK, w.Code)

	replaced := decode[UserResponse](t, w)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "new@b.com", replaced.Email)
	assert.Equal(t, NewDate(1970, time.March, 3), replaced.BirthDate)
	assert.Nil(t, replaced.Address)
	assert.Nil(t, replaced.PhoneNumber)
}

func TestCreateUserHandlerOptionalFields(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())

	w := doRequest(router, http.MethodPost, "/users",
		`{"email":"min@b.com","firstName":"Min","lastName":"Imal","birthDate":"1980-01-01"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body, "address")
	require.Contains(t, body, "phoneNumber")
	assert.Nil(t, body["address"])
	assert.Nil(t, body["phoneNumber"])

	w = doRequest(router, http.MethodPost, "/users",
		`{"email":"empty@b.com","firstName":"E","lastName":"P","birthDate":"1980-01-01","phoneNumber":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"phoneNumber: invalid phone number format"}, decode[ValidationErrorResponse](t, w).Errors)
}

func TestReplaceUserHandlerUpsertsUnknownID(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	id := uuid.New()

	w := doRequest(router, http.MethodPut, "/users/"+id.String(), validUserJSON)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[UserResponse](t, w).ID)

	w = doRequest(router, http.MethodGet, "/users/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteUserHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	created := createViaAPI(t, router, validUserJSON)
	path := "/users/" + created.ID.String()

	w := doRequest(router, http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doRequest(router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchByBirthDateHandler(t *testing.T) {
	router := newTestRouter(NewInMemoryStore())
	createViaAPI(t, router, validUserJSON)
	createViaAPI(t, router, `{"email":"old@b.com","firstName":"Old","lastName":"Timer","birthDate":"1950-01-01"}`)

	w := doRequest(router, http.MethodGet, "/users/search?from=1989-01-01&to=1990-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]UserResponse](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "a@b.com", found[0].Email)

	w = doRequest(router, http.MethodGet, "/users/search?from=1990-01-01&to=1989-01-01", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ValidationErrorResponse](t, w).Errors, "from: "+MessageDateRangeOrder)

	w = doRequest(router, http.MethodGet, "/users/search?from=1990-01-01", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"to: must not be null"}, decode[ValidationErrorResponse](t, w).Errors)

	w = doRequest(router, http.MethodGet, "/users/search?from=yesterday&to=1990-01-01", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"from: must be a date in YYYY-MM-DD format"}, decode[ValidationErrorResponse](t, w).Errors)
}

func TestHandlerUnexpectedError(t *testing.T) {
	store := new(MockUserStore)
	store.On("GetUser", mock.Anything, mock.Anything).Return(nil, errors.New("pq: connection refused"))
	router := newTestRouter(store)

	w := doRequest(router, http.MethodGet, "/users/"+uuid.New().String(), "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", resp.Status)
	assert.Equal(t, unexpectedErrorMessage, resp.Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", StatusName(http.StatusBadRequest))
	assert.Equal(t, "NOT_FOUND", StatusName(http.StatusNotFound))
	assert.Equal(t, "CONFLICT", StatusName(http.StatusConflict))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", StatusName(http.StatusInternalServerError))
}
