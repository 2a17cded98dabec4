package model

import "github.com/cdfmlr/crud/orm"

// dropdown values offered to the release form.

type Label struct {
	orm.BasicModel
	Name string `gorm:"uniqueIndex"`
}

type Publisher struct {
	orm.BasicModel
	Name string `gorm:"uniqueIndex"`
}

type Category struct {
	orm.BasicModel
	Name string `gorm:"uniqueIndex"`
}

type ContentType struct {
	orm.BasicModel
	Name string `gorm:"uniqueIndex"`
}
