package handler

import (
	"github.com/erp/flattax/internal/application/flattax"
	"github.com/erp/flattax/internal/domain/discount"
	"github.com/erp/flattax/internal/domain/shared/valueobject"
	"github.com/erp/flattax/internal/domain/taxes"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxHandler exposes the flat-tax stages over HTTP. Every endpoint hands the
// stage the untaxed price as the previous value, so an inactive plugin echoes
// prices back with net equal to gross.
type TaxHandler struct {
	BaseHandler
	plugin *flattax.Plugin
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(plugin *flattax.Plugin) *TaxHandler {
	return &TaxHandler{plugin: plugin}
}

// ListRates godoc
// @Summary      List tax rates
// @Description  Rate table in effect with the storefront tax settings
// @Tags         taxes
// @Produce      json
// @Success      200 {object} dto.Response{data=RatesResponse}
// @Router       /taxes/rates [get]
func (h *TaxHandler) ListRates(c *gin.Context) {
	table := h.plugin.Rates()
	rates := make(map[string]string, table.Len())
	for name, pct := range table.Percentages() {
		rates[name] = pct.String()
	}
	h.Success(c, RatesResponse{
		DefaultRate:    taxes.DefaultRateName,
		Rates:          rates,
		TaxTypes:       h.plugin.TaxRateTypeChoices([]taxes.TaxType{}),
		ShippingRate:   h.plugin.ShippingTaxRate(c.Request.Context(), decimal.Zero).Mul(hundred),
		PricesAreGross: h.plugin.Settings().IncludeTaxesInPrices,
		ShowTaxes:      h.plugin.ShowTaxesOnStorefront(true),
	})
}

// ProductPrice godoc
// @Summary      Tax a product price
// @Description  Taxes a product price, or a price range when price_stop is set
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        request body ProductPriceRequest true "Product and price"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /taxes/products/price [post]
func (h *TaxHandler) ProductPrice(c *gin.Context) {
	var req ProductPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	price, err := req.Price.toMoney()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	product := req.Product.toProduct()
	ctx := c.Request.Context()

	if req.PriceStop == nil {
		taxed, err := h.plugin.ApplyTaxesToProduct(ctx, product, price, valueobject.Untaxed(price))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, taxed)
		return
	}

	stop, err := req.PriceStop.toMoney()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	span, err := valueobject.NewMoneyRange(price, stop)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	previous, err := valueobject.NewTaxedMoneyRange(valueobject.Untaxed(price), valueobject.Untaxed(stop))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	taxed, err := h.plugin.ApplyTaxesToProductRange(ctx, product, span, previous)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, taxed)
}

// ShippingPrice godoc
// @Summary      Tax a shipping price
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        request body ShippingPriceRequest true "Shipping price"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /taxes/shipping/price [post]
func (h *TaxHandler) ShippingPrice(c *gin.Context) {
	var req ShippingPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	price, err := req.Price.toMoney()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	taxed, err := h.plugin.ApplyTaxesToShipping(c.Request.Context(), price, valueobject.Untaxed(price))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, taxed)
}

// CheckoutPrice godoc
// @Summary      Price a checkout
// @Description  Taxed unit and total price of every line, shipping and the checkout total
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        request body CheckoutRequest true "Checkout"
// @Success      200 {object} dto.Response{data=CheckoutResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /taxes/checkouts/price [post]
func (h *TaxHandler) CheckoutPrice(c *gin.Context) {
	var req CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	checkout, err := req.toCheckout()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	ctx := c.Request.Context()

	resp := CheckoutResponse{CheckoutID: checkout.ID, Lines: make([]CheckoutLineResponse, len(checkout.Lines))}
	undiscounted := valueobject.ZeroTaxed(checkout.Currency)
	for i, line := range checkout.Lines {
		lineTotal := valueobject.Untaxed(line.UnitPrice.MultiplyByInt(int64(line.Quantity)))
		unit, err := h.plugin.CheckoutLineUnitPrice(ctx, checkout, i, valueobject.Untaxed(line.UnitPrice))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		total, err := h.plugin.CheckoutLineTotal(ctx, checkout, i, lineTotal)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resp.Lines[i] = CheckoutLineResponse{LineID: line.ID, UnitPrice: unit, TotalPrice: total}
		if undiscounted, err = undiscounted.Add(lineTotal); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	if checkout.DeliveryPrice != nil {
		delivery := valueobject.Untaxed(*checkout.DeliveryPrice)
		shipping, err := h.plugin.CheckoutShipping(ctx, checkout, delivery)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resp.Shipping = &shipping
		if undiscounted, err = undiscounted.Add(delivery); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	if resp.Total, err = h.plugin.CheckoutTotal(ctx, checkout, undiscounted); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// OrderTaxes godoc
// @Summary      Recompute order taxes
// @Description  Prorates the order discount, taxes every line and shipping, and builds the tax data summary
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        request body OrderRequest true "Order"
// @Success      200 {object} dto.Response{data=OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /taxes/orders [post]
func (h *TaxHandler) OrderTaxes(c *gin.Context) {
	var req OrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := req.toOrder(h.plugin.Settings().Channel)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	ctx := c.Request.Context()

	resp := OrderResponse{OrderID: order.ID}
	if resp.Lines, err = h.plugin.UpdateTaxesForOrderLines(ctx, order, []flattax.TaxedOrderLine{}); err != nil {
		h.HandleError(c, err)
		return
	}
	if order.ShippingPrice != nil {
		shipping, err := h.plugin.OrderShipping(ctx, order, valueobject.Untaxed(*order.ShippingPrice))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resp.Shipping = &shipping
	}
	if resp.TaxData, err = h.plugin.TaxesForOrder(ctx, order, nil); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Prorate godoc
// @Summary      Prorate a discount
// @Description  Spreads a discount over lines in proportion to their totals; the last line takes the remainder
// @Tags         discounts
// @Accept       json
// @Produce      json
// @Param        request body ProrateRequest true "Lines and discount"
// @Success      200 {object} dto.Response{data=ProrateResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /taxes/discounts/prorate [post]
func (h *TaxHandler) Prorate(c *gin.Context) {
	var req ProrateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cur, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	lines := make([]discount.Line, len(req.Lines))
	for i, l := range req.Lines {
		price, err := valueobject.NewMoneyFromString(l.UnitPrice, cur)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		lines[i] = discount.Line{ID: parseOrNewID(l.ID), UnitPrice: price, Quantity: l.Quantity}
	}
	total, err := decimal.NewFromString(req.TotalDiscount)
	if err != nil {
		h.BadRequest(c, "total_discount is not a decimal number")
		return
	}

	allocs, err := discount.Prorate(lines, total, cur)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	discounted, applied, err := discount.Sum(allocs, cur)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ProrateResponse{
		Allocations:   toAllocationResponses(allocs),
		TotalDiscount: discounted,
		TotalApplied:  applied,
	})
}
