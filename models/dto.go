package models

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required,min=3"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AddToCartRequest struct {
	ProductID int `json:"product_id" binding:"required,min=1"`
	Quantity  int `json:"quantity" binding:"required,min=1"`
}

type UpdateCartLineRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Price       int    `json:"price" binding:"required,min=1"`
	Stock       int    `json:"stock" binding:"min=0"`
	Category    string `json:"category" binding:"required"`
	ImageURL    string `json:"image_url"`
}

type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price" binding:"omitempty,min=1"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
