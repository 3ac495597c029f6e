package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farmfresh/inventory"
	"farmfresh/models"
)

type CartController struct {
	store inventory.Store
	coord *inventory.Coordinator
}

func NewCartController(store inventory.Store, coord *inventory.Coordinator) *CartController {
	return &CartController{store: store, coord: coord}
}

// respondInventoryError translates engine errors into HTTP responses.
func respondInventoryError(c *gin.Context, err error) {
	var insufficient *inventory.InsufficientStockError
	var commitErr *inventory.OrderCommitError

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Message: insufficient.Error(),
		})
	case errors.Is(err, inventory.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Message: "Not found",
		})
	case errors.Is(err, inventory.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Cart is empty",
		})
	case errors.Is(err, inventory.ErrConflict), errors.Is(err, inventory.ErrTimeout):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Success: false,
			Message: "The store is busy, please retry",
			Error:   err.Error(),
		})
	case errors.As(err, &commitErr):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Message: "Failed to place order, your cart is unchanged",
			Error:   commitErr.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Message: "Internal error",
			Error:   err.Error(),
		})
	}
}

func (ctrl *CartController) cartFor(c *gin.Context) (models.Cart, bool) {
	cart, err := ctrl.store.EnsureCart(c.Request.Context(), c.GetInt("user_id"))
	if err != nil {
		respondInventoryError(c, err)
		return models.Cart{}, false
	}
	return cart, true
}

// @Summary Get cart
// @Description List the current user's cart lines
// @Tags Cart
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Response
// @Router /cart [get]
func (ctrl *CartController) GetCart(c *gin.Context) {
	cart, ok := ctrl.cartFor(c)
	if !ok {
		return
	}

	lines, err := ctrl.coord.Lines(c.Request.Context(), cart.ID)
	if err != nil {
		respondInventoryError(c, err)
		return
	}

	total := 0
	for _, line := range lines {
		total += line.Subtotal
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Data: gin.H{
			"items": lines,
			"total": total,
		},
	})
}

// @Summary Add item to cart
// @Description Reserve stock for a product and add it to the cart
// @Tags Cart
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.AddToCartRequest true "Product and quantity"
// @Success 200 {object} models.Response
// @Failure 409 {object} models.ErrorResponse "Insufficient stock"
// @Router /cart/add [post]
func (ctrl *CartController) AddToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	cart, ok := ctrl.cartFor(c)
	if !ok {
		return
	}

	if err := ctrl.coord.Reserve(c.Request.Context(), cart.ID, req.ProductID, req.Quantity); err != nil {
		respondInventoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Item added to cart",
	})
}

// @Summary Set cart line quantity
// @Description Set the reserved quantity for a product; 0 removes the line
// @Tags Cart
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param productId path int true "Product ID"
// @Param request body models.UpdateCartLineRequest true "New quantity"
// @Success 200 {object} models.Response
// @Failure 409 {object} models.ErrorResponse "Insufficient stock"
// @Router /cart/{productId} [patch]
func (ctrl *CartController) UpdateCartLine(c *gin.Context) {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Invalid product ID",
		})
		return
	}

	var req models.UpdateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	cart, ok := ctrl.cartFor(c)
	if !ok {
		return
	}

	if err := ctrl.coord.AdjustReservation(c.Request.Context(), cart.ID, productID, req.Quantity); err != nil {
		respondInventoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Cart updated",
	})
}

// @Summary Remove one unit from cart
// @Description Decrement the line's quantity by one, removing it at zero
// @Tags Cart
// @Security BearerAuth
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {object} models.Response
// @Router /cart/{productId} [delete]
func (ctrl *CartController) RemoveCartItem(c *gin.Context) {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Message: "Invalid product ID",
		})
		return
	}

	cart, ok := ctrl.cartFor(c)
	if !ok {
		return
	}

	if err := ctrl.coord.Release(c.Request.Context(), cart.ID, productID, 1); err != nil {
		respondInventoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Item updated in cart",
	})
}

// @Summary Clear cart
// @Description Release every reservation in the cart
// @Tags Cart
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Response
// @Router /cart [delete]
func (ctrl *CartController) ClearCart(c *gin.Context) {
	cart, ok := ctrl.cartFor(c)
	if !ok {
		return
	}

	if err := ctrl.coord.ReleaseAll(c.Request.Context(), cart.ID); err != nil {
		respondInventoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Cart cleared",
	})
}
