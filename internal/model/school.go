package model

// School groups users by campus; EmailIdentifier matches the domain part of
// a student address (e.g. "student.unsw.edu.au").
type School struct {
	ID              int64  `json:"id" gorm:"primaryKey"`
	Name            string `json:"name" gorm:"type:varchar(200);not null"`
	Color           string `json:"color" gorm:"type:varchar(7);not null;default:'#000000'"`
	Initial         string `json:"initial" gorm:"type:varchar(10);not null"`
	EmailIdentifier string `json:"email_identifier" gorm:"type:varchar(100);not null"`
}

func (School) TableName() string { return "schools" }
