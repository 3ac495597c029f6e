package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"farmfresh/config"
	"farmfresh/models"
	"farmfresh/repositories"
)

const productCacheTTL = 5 * time.Minute

type ProductService struct {
	productRepo *repositories.ProductRepository
}

func NewProductService() *ProductService {
	return &ProductService{
		productRepo: repositories.NewProductRepository(),
	}
}

type ProductListing struct {
	Products []models.Product      `json:"products"`
	Meta     models.PaginationMeta `json:"meta"`
}

func (s *ProductService) GetAll(category, search string, page, limit int) (*ProductListing, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("products_list_%s_%s_%d_%d", category, search, page, limit)
	if config.RedisClient != nil {
		cached, err := config.RedisClient.Get(context.Background(), cacheKey).Result()
		if err == nil {
			var listing ProductListing
			if json.Unmarshal([]byte(cached), &listing) == nil {
				return &listing, nil
			}
		}
	}

	products, total, err := s.productRepo.GetAll(category, search, page, limit)
	if err != nil {
		return nil, err
	}

	listing := &ProductListing{
		Products: products,
		Meta: models.PaginationMeta{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}

	if config.RedisClient != nil {
		if data, err := json.Marshal(listing); err == nil {
			config.RedisClient.Set(context.Background(), cacheKey, string(data), productCacheTTL)
		}
	}
	return listing, nil
}

func (s *ProductService) GetByID(id int) (*models.Product, error) {
	return s.productRepo.GetByID(id)
}

func (s *ProductService) Categories() ([]string, error) {
	return s.productRepo.Categories()
}

func (s *ProductService) Create(req models.CreateProductRequest) (*models.Product, error) {
	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	s.invalidateListCache()
	return product, nil
}

func (s *ProductService) Update(id int, req models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price > 0 {
		product.Price = req.Price
	}
	if req.Category != "" {
		product.Category = req.Category
	}
	if req.ImageURL != "" {
		product.ImageURL = req.ImageURL
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	s.invalidateListCache()
	return product, nil
}

func (s *ProductService) Delete(id int) (bool, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return false, err
	}
	if product == nil {
		return false, nil
	}
	if err := s.productRepo.Delete(id); err != nil {
		return false, err
	}
	s.invalidateListCache()
	return true, nil
}

func (s *ProductService) invalidateListCache() {
	if config.RedisClient == nil {
		return
	}
	ctx := context.Background()
	iter := config.RedisClient.Scan(ctx, 0, "products_list_*", 0).Iterator()
	for iter.Next(ctx) {
		config.RedisClient.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).Warn("failed to invalidate product cache")
	}
}
