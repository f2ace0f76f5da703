package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "shopbot/internal/repository"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
}

// DI
func NewProductUsecase(productRepo repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{productRepo: productRepo}
}

type ProductOutput struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	NormalPrice string `json:"normal_price"`
	Stock       int64  `json:"stock"`
}

// 公開中の商品だけ返す
func (u *ProductUsecase) GetProduct(ctx context.Context, id int64) (ProductOutput, error) {
	if id <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.productRepo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return ProductOutput{}, dbError(err)
	}

	return ProductOutput{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		NormalPrice: money(p.NormalPrice),
		Stock:       p.Stock,
	}, nil
}
