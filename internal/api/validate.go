package api

import (
	"sync"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"collegeattend/internal/attendance"
)

var registerOnce sync.Once

// registerValidations adds the custom tags used in request structs to gin's
// validator.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := civil.ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("markstatus", func(fl validator.FieldLevel) bool {
			_, err := attendance.ParseStatus(fl.Field().String())
			return err == nil
		})
	})
}
