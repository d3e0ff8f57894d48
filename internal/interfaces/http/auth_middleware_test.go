package http_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/inventario-flota/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-flota/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "inventario-flota-test"
	testExpMin    = 60
)

// tokenForRole genera un JWT con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// rawCall lanza la petición con el header Authorization tal cual y devuelve status y cuerpo.
func rawCall(t *testing.T, app *fiber.App, method, path, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// ──────────────────────────────────────────────────────────────────────────────
// Matriz de roles del router
// ──────────────────────────────────────────────────────────────────────────────

type routeAccess struct {
	method  string
	path    string
	allowed []string
}

var (
	allRoles       = []string{pkgjwt.RoleAdmin, pkgjwt.RoleBodeguero, pkgjwt.RoleConductor}
	warehouseRoles = []string{pkgjwt.RoleAdmin, pkgjwt.RoleBodeguero}
	adminOnly      = []string{pkgjwt.RoleAdmin}
)

var routeMatrix = []routeAccess{
	{http.MethodGet, "/api/inventory", allRoles},
	{http.MethodPost, "/api/inventory", warehouseRoles},
	{http.MethodGet, "/api/inventory/no-existe", allRoles},
	{http.MethodDelete, "/api/inventory/no-existe", adminOnly},
	{http.MethodPost, "/api/inventory/no-existe/replenish", warehouseRoles},
	{http.MethodGet, "/api/inventory/no-existe/movements", allRoles},
	{http.MethodPost, "/api/vehicles", adminOnly},
	{http.MethodGet, "/api/vehicles", allRoles},
	{http.MethodGet, "/api/vehicles/no-existe/inventory", allRoles},
	{http.MethodPost, "/api/vehicles/no-existe/returns", allRoles},
	{http.MethodGet, "/api/vehicles/no-existe/transfers", allRoles},
	{http.MethodPost, "/api/transfers", warehouseRoles},
	{http.MethodGet, "/api/transfers/no-existe", allRoles},
	{http.MethodPost, "/api/transfers/no-existe/approve", warehouseRoles},
	{http.MethodPost, "/api/transfers/no-existe/confirm", []string{pkgjwt.RoleAdmin, pkgjwt.RoleConductor}},
	{http.MethodPost, "/api/transfers/no-existe/cancel", warehouseRoles},
}

// Un rol permitido pasa el guard (la respuesta la decide el handler); uno no permitido recibe 403.
func TestRouter_MatrizDeRoles(t *testing.T) {
	app := newAPI(t)
	for _, route := range routeMatrix {
		for _, role := range allRoles {
			name := fmt.Sprintf("%s %s como %s", route.method, route.path, role)
			t.Run(name, func(t *testing.T) {
				status, body := rawCall(t, app, route.method, route.path, tokenForRole(t, role))
				if slices.Contains(route.allowed, role) {
					assert.NotEqual(t, http.StatusForbidden, status, "body: %s", body)
					assert.NotEqual(t, http.StatusUnauthorized, status, "body: %s", body)
				} else {
					assert.Equal(t, http.StatusForbidden, status, "body: %s", body)
					assert.Contains(t, body, "FORBIDDEN")
				}
			})
		}
	}
}

func TestRouter_ConductorConfirmaPeroNoAprueba(t *testing.T) {
	app := newAPI(t)
	itemID := seedItem(t, app, 10)
	vehicleID := seedVehicle(t, app, "COND-01")

	status, doc := issueCartons(t, app, vehicleID, itemID, 2)
	require.Equal(t, http.StatusCreated, status, "body: %v", doc)
	id := doc["id"].(string)

	status, _ = call(t, app, http.MethodPost, "/api/transfers/"+id+"/approve", pkgjwt.RoleConductor, nil)
	assert.Equal(t, http.StatusForbidden, status, "el conductor no aprueba salidas")

	status, _ = call(t, app, http.MethodPost, "/api/transfers/"+id+"/approve", pkgjwt.RoleBodeguero, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/transfers/"+id+"/confirm", pkgjwt.RoleBodeguero, nil)
	assert.Equal(t, http.StatusForbidden, status, "la bodega no confirma la recogida")

	status, body := call(t, app, http.MethodPost, "/api/transfers/"+id+"/confirm", pkgjwt.RoleConductor, nil)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, "confirmed", body["status"])
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware: token ausente, inválido o sin rol
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_SinAuthHeader_Retorna401(t *testing.T) {
	status, _ := rawCall(t, newAPI(t), http.MethodGet, "/api/inventory", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware_TokenInvalido_Retorna401(t *testing.T) {
	status, _ := rawCall(t, newAPI(t), http.MethodGet, "/api/vehicles", "Bearer token.invalido.aqui")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware_TokenExpirado_Retorna401(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)

	status, _ := rawCall(t, newAPI(t), http.MethodGet, "/api/transfers/no-existe", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, status)
}

// Token legado sin claim de rol: el guard responde 401 MISSING_ROLE en cualquier ruta protegida.
func TestRequireRole_TokenSinRol_Retorna401(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	status, body := rawCall(t, newAPI(t), http.MethodGet, "/api/inventory", "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "MISSING_ROLE")
}

func TestRequireRole_RolDesconocido_Retorna403(t *testing.T) {
	status, body := rawCall(t, newAPI(t), http.MethodGet, "/api/vehicles", tokenForRole(t, "vendedor"))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body, "FORBIDDEN")
}

// La salud no pasa por el middleware.
func TestRouter_HealthEsPublico(t *testing.T) {
	status, body := rawCall(t, newAPI(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "ok")
}

func TestAuthMiddleware_ExtractaClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": apphttp.GetUserID(c),
			"role":    apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleConductor))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, pkgjwt.RoleConductor, body["role"])
}
