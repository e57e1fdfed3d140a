package handlers

import (
	"net/http"
	"testing"

	"ecommerce-backend/models"
)

func TestCreateCategory(t *testing.T) {
	db := freshDB()
	app := setupRouter(db)
	token := tokenFor(seedTestUser(db, "admin@test.com", models.RoleAdmin))

	w := app.do(authRequest("POST", "/api/v1/category/create-category", map[string]string{"name": "Home & Kitchen"}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	category := parseResponse(w)["category"].(map[string]interface{})
	if category["slug"] != "home-and-kitchen" {
		t.Errorf("expected slug home-and-kitchen, got %v", category["slug"])
	}

	w = app.do(authRequest("POST", "/api/v1/category/create-category", map[string]string{"name": "home & kitchen"}, token))
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for a duplicate, got %d", w.Code)
	}

	w = app.do(authRequest("POST", "/api/v1/category/create-category", map[string]string{}, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without a name, got %d", w.Code)
	}
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	db := freshDB()
	app := setupRouter(db)
	token := tokenFor(seedTestUser(db, "user@test.com", models.RoleCustomer))

	w := app.do(authRequest("POST", "/api/v1/category/create-category", map[string]string{"name": "Books"}, token))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}
}

func TestGetCategories(t *testing.T) {
	db := freshDB()
	app := setupRouter(db)
	seedTestCategory(db, "Books")
	seedTestCategory(db, "Clothing")

	w := app.do(jsonRequest("GET", "/api/v1/category/get-category", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	categories := parseResponse(w)["category"].([]interface{})
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}

	w = app.do(jsonRequest("GET", "/api/v1/category/single-category/books", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if name := parseResponse(w)["category"].(map[string]interface{})["name"]; name != "Books" {
		t.Errorf("expected Books, got %v", name)
	}
}

func TestUpdateCategory(t *testing.T) {
	db := freshDB()
	app := setupRouter(db)
	token := tokenFor(seedTestUser(db, "admin@test.com", models.RoleAdmin))
	books := seedTestCategory(db, "Books")
	seedTestCategory(db, "Clothing")

	w := app.do(authRequest("PUT", "/api/v1/category/update-category/"+books.ID.String(), map[string]string{"name": "Comics"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if slug := parseResponse(w)["category"].(map[string]interface{})["slug"]; slug != "comics" {
		t.Errorf("expected slug comics, got %v", slug)
	}

	w = app.do(authRequest("PUT", "/api/v1/category/update-category/"+books.ID.String(), map[string]string{"name": "Clothing"}, token))
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 when renaming onto another category, got %d", w.Code)
	}
}

func TestDeleteCategory(t *testing.T) {
	db := freshDB()
	app := setupRouter(db)
	token := tokenFor(seedTestUser(db, "admin@test.com", models.RoleAdmin))
	books := seedTestCategory(db, "Books")
	clothing := seedTestCategory(db, "Clothing")
	seedTestProduct(db, clothing.ID, "Scarf", 300, 5)

	w := app.do(authRequest("DELETE", "/api/v1/category/delete-category/"+clothing.ID.String(), nil, token))
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409 for a category with products, got %d", w.Code)
	}

	w = app.do(authRequest("DELETE", "/api/v1/category/delete-category/"+books.ID.String(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = app.do(authRequest("DELETE", "/api/v1/category/delete-category/"+books.ID.String(), nil, token))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", w.Code)
	}
}
