package model

import "time"

// PlantType is a server-owned plant category
type PlantType struct {
	ID          int64  `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// SavedReport is an archived diagnosis kept by the backend
type SavedReport struct {
	ID        int64     `json:"id"`
	PlantType PlantType `json:"plantType"`
	Diagnosis string    `json:"diagnosis"` // markdown
	CreatedAt time.Time `json:"createdAt"`
}
