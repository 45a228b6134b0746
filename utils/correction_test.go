package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCorrections(t *testing.T) {
	t.Run("NameWithColon", func(t *testing.T) {
		updates := ParseCorrections("Name: Rajesh Sharma")
		assert.Equal(t, map[string]string{CorrectionFieldName: "Rajesh Sharma"}, updates)
	})

	t.Run("CompanyWithDash", func(t *testing.T) {
		updates := ParseCorrections("company - Acme Traders")
		assert.Equal(t, "Acme Traders", updates[CorrectionFieldCompany])
	})

	t.Run("DesignationBeatsName", func(t *testing.T) {
		// "designation" must claim the line before the generic name pattern
		updates := ParseCorrections("designation: Sales Head")
		assert.Equal(t, "Sales Head", updates[CorrectionFieldDesignation])
		assert.Empty(t, updates[CorrectionFieldName])
	})

	t.Run("PhoneKeepsDigitsAndSeparators", func(t *testing.T) {
		updates := ParseCorrections("mobile: +91 98765 43210")
		assert.Equal(t, "+91 98765 43210", updates[CorrectionFieldPhone])
	})

	t.Run("EmailByShape", func(t *testing.T) {
		updates := ParseCorrections("my address is rajesh@acme.in")
		assert.Equal(t, "rajesh@acme.in", updates[CorrectionFieldEmail])
	})

	t.Run("MultipleLines", func(t *testing.T) {
		updates := ParseCorrections("name: Priya Patel\ncompany: Patel Exports\nphone: 9812345678")
		assert.Len(t, updates, 3)
		assert.Equal(t, "Priya Patel", updates[CorrectionFieldName])
		assert.Equal(t, "Patel Exports", updates[CorrectionFieldCompany])
		assert.Equal(t, "9812345678", updates[CorrectionFieldPhone])
	})

	t.Run("BareJobTitle", func(t *testing.T) {
		updates := ParseCorrections("HR Manager")
		assert.Equal(t, "HR Manager", updates[CorrectionFieldDesignation])
	})

	t.Run("BareJobTitleTooLong", func(t *testing.T) {
		updates := ParseCorrections("I was handling HR duties a long while back")
		assert.Empty(t, updates)
	})

	t.Run("NoCorrection", func(t *testing.T) {
		updates := ParseCorrections("thanks, talk later")
		assert.Empty(t, updates)
	})

	t.Run("HindiNameKeyword", func(t *testing.T) {
		updates := ParseCorrections("naam: Arjun")
		assert.Equal(t, "Arjun", updates[CorrectionFieldName])
	})
}
