package models

// TemplateKind distinguishes built-in templates from user-created ones
type TemplateKind string

const (
	TemplateKindSystem TemplateKind = "system"
	TemplateKindCustom TemplateKind = "custom"
)

// TemplateType tags which budgeting method a template (or a budget
// derived from one) follows
type TemplateType string

const (
	TemplateTypeCustom         TemplateType = "custom"
	TemplateTypeFiftyThirty20  TemplateType = "50-30-20"
	TemplateTypeZeroBased      TemplateType = "zero-based"
	TemplateTypeEnvelopeSystem TemplateType = "envelope"
)

// BudgetTemplate is a percentage-based blueprint for generating a
// budget's categories from a total amount. Category percentages are
// author-supplied and deliberately not required to sum to 100.
type BudgetTemplate struct {
	Base
	Name         string       `gorm:"not null" json:"name"`
	Description  string       `json:"description"`
	Kind         TemplateKind `gorm:"default:custom" json:"type"`
	TemplateType TemplateType `gorm:"default:custom" json:"template_type"`
	UserID       *string      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	IsPublic     bool         `gorm:"default:false" json:"is_public"`

	Categories []TemplateCategory `gorm:"foreignKey:TemplateID" json:"categories"`
}

// TemplateCategory allocates a percentage of the total budget
type TemplateCategory struct {
	Base
	TemplateID string        `gorm:"type:uuid;not null;index" json:"template_id"`
	Name       string        `gorm:"not null" json:"name"`
	Percentage float64       `gorm:"not null" json:"percentage"`
	Group      CategoryGroup `gorm:"default:Other" json:"group"`
	Color      string        `gorm:"default:#3f51b5" json:"color"`

	Subcategories []TemplateSubcategory `gorm:"foreignKey:CategoryID" json:"subcategories,omitempty"`
}

// TemplateSubcategory allocates a percentage of its parent category's
// computed limit, not of the grand total.
type TemplateSubcategory struct {
	Base
	CategoryID string  `gorm:"type:uuid;not null;index" json:"category_id"`
	Name       string  `gorm:"not null" json:"name"`
	Percentage float64 `gorm:"not null" json:"percentage"`
	Color      string  `json:"color,omitempty"`
}
