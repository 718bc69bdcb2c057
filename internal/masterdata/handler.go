package masterdata

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-mdm/atlas-mdm/internal/authz"
	"github.com/atlas-mdm/atlas-mdm/internal/platform/httpx"
	"github.com/atlas-mdm/atlas-mdm/internal/shared"
)

// Guard wraps a route group with the authorization middleware for one
// navigation/action pair.
type Guard func(nav authz.Navigation, action authz.Action) func(http.Handler) http.Handler

// Handler exposes the master-data JSON API.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the master-data handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Mount registers routes on r, guarding each group with the matching
// navigation permission.
func (h *Handler) Mount(r chi.Router, guard Guard) {
	r.Route("/products", func(r chi.Router) {
		r.With(guard(authz.NavProducts, authz.ActionView)).Get("/", h.listProducts)
		r.With(guard(authz.NavProducts, authz.ActionView)).Get("/{id}", h.getProduct)
		r.With(guard(authz.NavProducts, authz.ActionAdd)).Post("/", h.createProduct)
		r.With(guard(authz.NavProducts, authz.ActionEdit)).Put("/{id}", h.updateProduct)
		r.With(guard(authz.NavProducts, authz.ActionDelete)).Delete("/{id}", h.deleteProduct)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.With(guard(authz.NavSuppliers, authz.ActionView)).Get("/", h.listSuppliers)
		r.With(guard(authz.NavSuppliers, authz.ActionView)).Get("/{id}", h.getSupplier)
		r.With(guard(authz.NavSuppliers, authz.ActionAdd)).Post("/", h.createSupplier)
		r.With(guard(authz.NavSuppliers, authz.ActionEdit)).Put("/{id}", h.updateSupplier)
		r.With(guard(authz.NavSuppliers, authz.ActionDelete)).Delete("/{id}", h.deleteSupplier)
	})
	r.Route("/warehouses", func(r chi.Router) {
		r.With(guard(authz.NavWarehouses, authz.ActionView)).Get("/", h.listWarehouses)
		r.With(guard(authz.NavWarehouses, authz.ActionAdd)).Post("/", h.createWarehouse)
	})
	r.Route("/categories", func(r chi.Router) {
		r.With(guard(authz.NavCategories, authz.ActionView)).Get("/", h.listCategories)
		r.With(guard(authz.NavCategories, authz.ActionAdd)).Post("/", h.createCategory)
	})
	r.Route("/units", func(r chi.Router) {
		r.With(guard(authz.NavUnits, authz.ActionView)).Get("/", h.listUnits)
		r.With(guard(authz.NavUnits, authz.ActionAdd)).Post("/", h.createUnit)
	})
	r.Route("/taxes", func(r chi.Router) {
		r.With(guard(authz.NavTaxes, authz.ActionView)).Get("/", h.listTaxes)
		r.With(guard(authz.NavTaxes, authz.ActionAdd)).Post("/", h.createTax)
	})
}

func parseFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("search")}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filters.Limit = limit
	}
	if raw := q.Get("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filters.IsActive = &active
		}
	}
	return filters
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "")
	case errors.Is(err, ErrNoScope):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

type productRequest struct {
	SKU        string `json:"sku" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=255"`
	CategoryID *int64 `json:"category_id"`
	UnitID     *int64 `json:"unit_id"`
	IsActive   bool   `json:"is_active"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	products, total, err := h.service.ListProducts(r.Context(), filters)
	if err != nil {
		respondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[Product]{
		Data:       products,
		Pagination: shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.CreateProduct(r.Context(), Product{
		SKU:        req.SKU,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		UnitID:     req.UnitID,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateProduct(r.Context(), id, Product{
		SKU:        req.SKU,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		UnitID:     req.UnitID,
		IsActive:   req.IsActive,
	}); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type supplierRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	suppliers, total, err := h.service.ListSuppliers(r.Context(), filters)
	if err != nil {
		respondError(w, err)
		return
	}
	if suppliers == nil {
		suppliers = []Supplier{}
	}
	httpx.JSON(w, http.StatusOK, listResponse[Supplier]{
		Data:       suppliers,
		Pagination: shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), Supplier{
		Code:     req.Code,
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateSupplier(r.Context(), id, Supplier{
		Code:     req.Code,
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
	}); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type warehouseRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=255"`
	Address string `json:"address" validate:"max=500"`
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.service.ListWarehouses(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if warehouses == nil {
		warehouses = []Warehouse{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": warehouses})
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	warehouse, err := h.service.CreateWarehouse(r.Context(), Warehouse{
		Code:    req.Code,
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, warehouse)
}

type categoryRequest struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=255"`
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": categories})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	category, err := h.service.CreateCategory(r.Context(), Category{
		Code:     req.Code,
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

type unitRequest struct {
	Code string `json:"code" validate:"required,max=16"`
	Name string `json:"name" validate:"required,max=128"`
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if units == nil {
		units = []Unit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": units})
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	unit, err := h.service.CreateUnit(r.Context(), Unit{Code: req.Code, Name: req.Name})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

type taxRequest struct {
	Code string  `json:"code" validate:"required,max=16"`
	Name string  `json:"name" validate:"required,max=128"`
	Rate float64 `json:"rate" validate:"gte=0,lte=100"`
}

func (h *Handler) listTaxes(w http.ResponseWriter, r *http.Request) {
	taxes, err := h.service.ListTaxes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if taxes == nil {
		taxes = []Tax{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": taxes})
}

func (h *Handler) createTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	tax, err := h.service.CreateTax(r.Context(), Tax{Code: req.Code, Name: req.Name, Rate: req.Rate})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tax)
}
