package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/pkg/imagecodec"
)

type productPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Category string `json:"category" validate:"required,min=1,max=200"`
	Price    string `json:"price" validate:"required,min=1,max=64"`
	Image    string `json:"image"`
}

// registerProductRoutes registers catalog CRUD endpoints. Mutations go
// through the record store so every change triggers a snapshot push to all
// live subscribers.
func registerProductRoutes(e *echo.Echo) {
	e.GET("/catalog/products", listProducts)
	e.GET("/catalog/products/:id", getProduct)
	e.POST("/catalog/products", createProduct)
	e.PUT("/catalog/products/:id", updateProduct)
	e.DELETE("/catalog/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	// Filters: q matches name or category
	q := strings.TrimSpace(c.QueryParam("q"))

	// Sorting: whitelist columns to avoid SQL injection
	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	allowed := map[string]string{
		"name":       "name",
		"category":   "category",
		"created_at": "created_at",
		"updated_at": "updated_at",
		"sort":       "sort",
	}
	sortCol, okCol := allowed[sortField]
	if !okCol || sortCol == "" {
		sortCol = "sort"
	}

	db := GetDB(c).Model(&domain.Product{})
	if q != "" {
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("name ILIKE ? OR category ILIKE ?", "%"+q+"%", "%"+q+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?",
				"%"+strings.ToLower(q)+"%", "%"+strings.ToLower(q)+"%")
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := validateProductPayload(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	id, err := GetStore(c).Create(c.Request().Context(), domain.Product{
		Name:     payload.Name,
		Category: payload.Category,
		Price:    payload.Price,
		Image:    payload.Image,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to create product", err.Error())
	}
	return ok(c, map[string]interface{}{"id": id})
}

func updateProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var existing domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&existing).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := validateProductPayload(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	err := GetStore(c).Set(c.Request().Context(), id, domain.Product{
		Name:     payload.Name,
		Category: payload.Category,
		Price:    payload.Price,
		Image:    payload.Image,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to update product", err.Error())
	}
	return ok(c, map[string]interface{}{"id": id})
}

func deleteProduct(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetStore(c).Delete(c.Request().Context(), id); err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to delete product", err.Error())
	}
	return ok(c, map[string]interface{}{"id": id})
}

func validateProductPayload(p *productPayload) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Price = strings.TrimSpace(p.Price)
	switch {
	case p.Name == "":
		return errors.New("Name is required")
	case p.Category == "":
		return errors.New("Category is required")
	case p.Price == "":
		return errors.New("Price is required")
	}
	if p.Image != "" {
		if _, err := imagecodec.Decode(p.Image); err != nil {
			return errors.New("Image payload is not a valid encoded picture")
		}
	}
	return nil
}
