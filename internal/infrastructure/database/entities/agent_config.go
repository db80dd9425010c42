package entities

import "time"

// AgentConfig stores the agent configuration document: the raw YAML plus a
// JSON object mapping agent keys to instruction texts. A single row is kept.
type AgentConfig struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	YAML         string    `gorm:"column:yaml;type:text;not null"`
	Instructions string    `gorm:"type:text;not null"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AgentConfig) TableName() string {
	return "agent_configs"
}
