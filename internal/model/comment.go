package model

// Comment is an append-only remark attached to a product. Both the author
// reference and the content are optional; there is no edit operation.
type Comment struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	UserID  *uint  `json:"user_id,omitempty" gorm:"index"`
	Content string `json:"content" gorm:"type:text"`
}
