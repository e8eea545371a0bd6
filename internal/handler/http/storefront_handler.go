package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/catalog"
	"github.com/vasiliy-maslov/littletreat/internal/checkout"
	"github.com/vasiliy-maslov/littletreat/internal/order"
)

var errUnknownSlot = errors.New("delivery slot is not offered")

type CheckoutRequest struct {
	// Items maps item ids to quantities.
	Items     map[string]int `json:"items" validate:"dive,keys,required,max=64,endkeys,gte=0,lte=999"`
	Flat      string         `json:"flat" validate:"max=100"`
	Apartment string         `json:"apartment" validate:"max=200"`
	Slot      string         `json:"slot" validate:"max=64"`
}

type MenuResponse struct {
	Name       string             `json:"name"`
	Kind       order.Kind         `json:"kind"`
	Categories []catalog.Category `json:"categories"`
}

type SlotsResponse struct {
	DeliveryDate string         `json:"deliveryDate,omitempty"`
	Slots        []catalog.Slot `json:"slots"`
}

type StorefrontConfig struct {
	Name         string
	Kind         order.Kind
	DeliveryDate string
	Slots        []catalog.Slot
}

type StorefrontHandler struct {
	catalog  *catalog.Catalog
	checkout checkout.Service
	cfg      StorefrontConfig
	validate *validator.Validate
}

func NewStorefrontHandler(cat *catalog.Catalog, svc checkout.Service, cfg StorefrontConfig) *StorefrontHandler {
	return &StorefrontHandler{
		catalog:  cat,
		checkout: svc,
		cfg:      cfg,
		validate: validator.New(),
	}
}

func (h *StorefrontHandler) RegisterRoutes(router chi.Router) {
	router.Get("/menu", h.handleMenu)
	router.Get("/delivery/slots", h.handleSlots)
	router.Post("/checkout", h.handleCheckout)
}

func (h *StorefrontHandler) handleMenu(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, MenuResponse{
		Name:       h.cfg.Name,
		Kind:       h.cfg.Kind,
		Categories: h.catalog.Visible(),
	})
}

func (h *StorefrontHandler) handleSlots(w http.ResponseWriter, r *http.Request) {
	slots := h.cfg.Slots
	if slots == nil {
		slots = []catalog.Slot{}
	}
	respondWithJSON(w, http.StatusOK, SlotsResponse{
		DeliveryDate: h.cfg.DeliveryDate,
		Slots:        slots,
	})
}

func (h *StorefrontHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var requestPayload CheckoutRequest
	if err := decodeJSON(w, r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("handler: failed to decode checkout body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	cart := catalog.NewCart(h.catalog)
	for itemID, quantity := range requestPayload.Items {
		item, ok := h.catalog.Item(itemID)
		if !ok || !item.Visible() {
			log.Warn().Str("item_id", itemID).Msg("handler: checkout with an item not on the menu")
			respondWithError(w, http.StatusBadRequest, "Unknown item: "+itemID)
			return
		}
		if err := cart.SetQuantity(itemID, quantity); err != nil {
			respondWithError(w, mapErrorToStatusCode(err), "Unknown item: "+itemID)
			return
		}
	}

	slot, err := h.slotLabel(requestPayload.Slot)
	if err != nil {
		log.Warn().Str("slot", requestPayload.Slot).Msg("handler: checkout with an unknown delivery slot")
		respondWithError(w, http.StatusBadRequest, "Unknown delivery slot")
		return
	}

	receipt, err := h.checkout.Submit(r.Context(), checkout.Request{
		Cart:    cart,
		Address: order.Address{Flat: requestPayload.Flat, Apartment: requestPayload.Apartment},
		Slot:    slot,
	})
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			clientMessage = "Please add items to your cart"
		case errors.Is(err, checkout.ErrInvalidAddress):
			clientMessage = "Please enter your flat number and apartment name"
		default:
			log.Error().Err(err).Msg("handler: checkout failed")
			clientMessage = "Failed to place order"
		}
		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, receipt)
}

// slotLabel accepts either a slot value or its label and returns the label.
// Any slot is accepted when no delivery window is configured.
func (h *StorefrontHandler) slotLabel(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" || len(h.cfg.Slots) == 0 {
		return slot, nil
	}
	for _, s := range h.cfg.Slots {
		if s.Value == slot || s.Label == slot {
			return s.Label, nil
		}
	}
	return "", errUnknownSlot
}
