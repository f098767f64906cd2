package events

import (
	"context"

	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
	"github.com/vasiliy-maslov/laptop-store/internal/payment"
)

// NopPublisher drops every event. It is used when no Kafka brokers are configured.
type NopPublisher struct{}

func (NopPublisher) IndexProduct(context.Context, catalog.Product)                 {}
func (NopPublisher) RemoveProduct(context.Context, int64)                          {}
func (NopPublisher) OrderPlaced(context.Context, order.Order)                      {}
func (NopPublisher) OrderStatusChanged(context.Context, order.Order, order.Status) {}
func (NopPublisher) PaymentConfirmed(context.Context, payment.Transaction)         {}
func (NopPublisher) PaymentFailed(context.Context, payment.Transaction, string)    {}
func (NopPublisher) Close() error                                                  { return nil }
