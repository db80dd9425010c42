package agentconfig

// Document is the editable agent configuration: the raw pipeline YAML and a
// map of agent key to instruction text.
type Document struct {
	YAML         string            `json:"yaml"`
	Instructions map[string]string `json:"instructions"`
}
