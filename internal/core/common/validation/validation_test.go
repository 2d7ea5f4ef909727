package validation_test

import (
	"testing"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

var _ = Describe("ValidationBuilder", func() {
	It("should pass valid input", func() {
		v := validation.NewValidator()
		v.Field("name", "Website Redesign").Required().MaxLength(200)
		v.Field("status", "Planning").OneOf([]string{"Planning", "Completed"}, internal.ErrCodeInvalidStatus)
		v.Field("deadline", "2024-03-15").Date()

		Expect(v.Validate()).To(BeNil())
	})

	It("should collect every failing field", func() {
		v := validation.NewValidator()
		v.Field("name", "   ").Required()
		v.Field("status", "Done").OneOf([]string{"Planning"}, internal.ErrCodeInvalidStatus)
		v.Field("deadline", "15/03/2024").Date()

		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.Code).To(Equal(internal.ErrCodeValidationFailed))

		details := err.Details.(internal.ValidationErrors)
		Expect(details.Errors).To(HaveLen(3))
		Expect(details.Errors[0].Field).To(Equal("name"))
		Expect(details.Errors[1].Code).To(Equal(string(internal.ErrCodeInvalidStatus)))
		Expect(details.Errors[2].Code).To(Equal(string(internal.ErrCodeInvalidDate)))
		Expect(err.GetDetailedMessage()).To(ContainSubstring("name is required"))
	})

	It("should reject future dates with NotFuture", func() {
		v := validation.NewValidator()
		v.Field("born", time.Now().Add(time.Hour)).NotFuture()
		Expect(v.Validate()).NotTo(BeNil())
	})

	It("should apply NotFuture to date strings", func() {
		v := validation.NewValidator()
		v.Field("born", time.Now().AddDate(1, 0, 0).Format(time.DateOnly)).Date().NotFuture()
		Expect(v.Validate()).NotTo(BeNil())

		v = validation.NewValidator()
		v.Field("born", "1980-02-29").Date().NotFuture()
		Expect(v.Validate()).To(BeNil())
	})

	It("should reject blank message text", func() {
		Expect(validation.ValidateMessageText(" \n\t")).NotTo(BeNil())
		Expect(validation.ValidateMessageText("hello")).To(BeNil())
	})
})
