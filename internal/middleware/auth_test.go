package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func testApp(apiKey string) *fiber.App {
	app := fiber.New()
	app.Use(ApiKeyAuth(apiKey))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestApiKeyAuthAcceptsMatchingKey(t *testing.T) {
	app := testApp("secret")
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Api-Key", "secret")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestApiKeyAuthRejectsWrongOrMissingKey(t *testing.T) {
	app := testApp("secret")

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest("GET", "/", nil)
		if key != "" {
			req.Header.Set("X-Api-Key", key)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("key %q: status = %d, want 401", key, resp.StatusCode)
		}
	}
}

func TestApiKeyAuthDisabledWhenUnconfigured(t *testing.T) {
	app := testApp("")
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
