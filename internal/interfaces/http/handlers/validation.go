// internal/interfaces/http/handlers/validation.go
package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/inventory"
	"github.com/your-org/marketplace-backend/internal/domain/order"
)

var registerOnce sync.Once

// RegisterValidators adds the domain enum tags to gin's validator and reports
// fields by their json names
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("movement_reason", func(fl validator.FieldLevel) bool {
			return inventory.MovementReason(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("cart_status", func(fl validator.FieldLevel) bool {
			return cart.Status(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return order.OrderStatus(fl.Field().String()).Valid()
		})
	})
}
