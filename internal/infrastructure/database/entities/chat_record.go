package entities

import "time"

// ChatRecord models one audited chat exchange in the history table.
type ChatRecord struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	Timestamp         time.Time `gorm:"index:idx_chat_records_timestamp,sort:desc;not null"`
	ThreadID          string    `gorm:"type:text;index"`
	UserMessage       string    `gorm:"type:text"`
	AssistantResponse string    `gorm:"type:text"`
	ExpertResponse    string    `gorm:"type:text"`
	EndpointSource    string    `gorm:"type:text"`
}

func (ChatRecord) TableName() string {
	return "chat_records"
}
