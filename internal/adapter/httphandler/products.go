package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/query"
)

// GET v1/categories/{category}/products?brand=&price=&sub=&q=&in_stock=&sort=&page= (200 OK)
// GET v1/products?q=... the same listing over the whole catalog (200 OK)
// GET v1/products/{id} (200 OK, 404 Not found)
// POST v1/products JSON [products] (201 Created, 400 Bad request)
// POST v1/products/visibility JSON {"product_id": string, "hidden": bool} (202 Accepted, 503 Service unavailable)

type Catalog interface {
	QueryProducts(ctx context.Context, category string, st query.FilterState) (domain.ProductPage, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	StoreProducts(context.Context, []domain.Product) error
	SetVisibility(context.Context, domain.ProductVisibility) error
}

type ProductsHandler struct {
	catalog Catalog
	errs    errorResponder
}

func RegisterProducts(mux *http.ServeMux, catalog Catalog) {
	h := ProductsHandler{catalog: catalog}
	mux.HandleFunc("GET /v1/categories/{category}/products", h.GetCategory)
	mux.HandleFunc("GET /v1/products", h.Search)
	mux.HandleFunc("GET /v1/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /v1/products", h.PostProducts)
	mux.HandleFunc("POST /v1/products/visibility", h.PostVisibility)
}

func (h ProductsHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetCategory"
	h.list(w, r, op, r.PathValue("category"))
}

func (h ProductsHandler) Search(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Search"
	h.list(w, r, op, "")
}

func (h ProductsHandler) list(
	w http.ResponseWriter, r *http.Request, op, category string,
) {
	log := slog.With("op", op)

	st := FilterStateFromQuery(r.URL.Query())
	page, err := h.catalog.QueryProducts(r.Context(), category, st)
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusOK, fromProductPage(page))
}

func (h ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProduct"
	log := slog.With("op", op)

	p, err := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusOK, fromProduct(p))
}

func (h ProductsHandler) PostProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostProducts"
	log := slog.With("op", op)

	var ps []Product
	if err := decodeJSON(r, &ps); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	dps := make([]domain.Product, len(ps))
	for i, p := range ps {
		dps[i] = p.toDomain()
	}

	if err := h.catalog.StoreProducts(r.Context(), dps); err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"stored": len(dps)})
	log.Info("stored", "nProducts", len(dps))
}

func (h ProductsHandler) PostVisibility(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostVisibility"
	log := slog.With("op", op)

	var rule VisibilityRule
	if err := decodeJSON(r, &rule); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	v := domain.ProductVisibility{
		ProductID: strings.TrimSpace(rule.ProductID),
		Hidden:    rule.Hidden,
	}
	if err := h.catalog.SetVisibility(r.Context(), v); err != nil {
		h.errs.respond(w, r, log, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	log.Info("accepted", "productID", v.ProductID, "hidden", v.Hidden)
}

// FilterStateFromQuery replays the listing query parameters as filter
// events. The page is applied last because every filter event resets it.
func FilterStateFromQuery(q url.Values) query.FilterState {
	st := query.NewFilterState()

	var brands []string
	for _, v := range q["brand"] {
		brands = append(brands, strings.Split(v, ",")...)
	}
	if len(brands) != 0 {
		st = st.Apply(query.SetBrands{Brands: brands})
	}

	if v := q.Get("price"); v != "" {
		// Parsable ranges are kept in canonical form, e.g. "500-" as "500".
		if r, ok := query.ParsePriceRange(v); ok {
			v = r.String()
		}
		st = st.Apply(query.SetPriceRange{Range: v})
	}
	if v := q.Get("sub"); v != "" {
		st = st.Apply(query.SetCategory{Category: v})
	}
	if v := q.Get("q"); v != "" {
		st = st.Apply(query.SetQuery{Query: v})
	}
	if on, err := strconv.ParseBool(q.Get("in_stock")); err == nil {
		st = st.Apply(query.SetInStockOnly{On: on})
	}
	if v := q.Get("sort"); v != "" {
		st = st.Apply(query.SetSort{Key: query.SortKey(v)})
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		st = st.Apply(query.SetPage{Page: n})
	}
	return st
}
