package services

import (
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/services/checkout-api/configs"
)

// ShippingService quotes the shipping fee for an order in the cart's
// currency. The fee is flat, optionally waived above a configured subtotal.
type ShippingService interface {
	Quote(itemsTotal money.Money) (money.Money, error)
}

type ShippingServiceImpl struct {
	logger   *zap.Logger
	flatFee  string
	freeOver string
}

func NewShippingService(logger *zap.Logger, cfg *configs.Config) ShippingService {
	return &ShippingServiceImpl{
		logger:   logger,
		flatFee:  cfg.ShippingFlatFee,
		freeOver: cfg.ShippingFreeOver,
	}
}

func (s *ShippingServiceImpl) Quote(itemsTotal money.Money) (money.Money, error) {
	fee, err := money.New(s.flatFee, itemsTotal.Currency)
	if err != nil {
		return money.Money{}, err
	}
	if !utils.IsEmpty(s.freeOver) {
		threshold, err := money.New(s.freeOver, itemsTotal.Currency)
		if err != nil {
			return money.Money{}, err
		}
		if itemsTotal.Amount.Cmp(threshold.Amount) >= 0 {
			return money.Zero(itemsTotal.Currency), nil
		}
	}
	return fee, nil
}
