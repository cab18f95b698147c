package model

import "time"

// ExportRecord logs one generated PDF report
type ExportRecord struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	SessionID   string    `json:"sessionId" bson:"sessionId"`
	PlantTypeID int64     `json:"plantTypeId" bson:"plantTypeId"`
	PlantName   string    `json:"plantName" bson:"plantName"`
	Filename    string    `json:"filename" bson:"filename"`
	Pages       int       `json:"pages" bson:"pages"`
	SizeBytes   int       `json:"sizeBytes" bson:"sizeBytes"`
	Diagnosis   string    `json:"diagnosis" bson:"diagnosis"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}
