// pkg/registry/schema.go
package registry

type ActivityRegistry struct {
	Version     string     `yaml:"version" json:"version"`
	LastUpdated string     `yaml:"lastUpdated" json:"lastUpdated"`
	Activities  []Activity `yaml:"activities" json:"activities"`
}

type Activity struct {
	ID                   string                 `yaml:"id" json:"id"`
	DisplayName          string                 `yaml:"displayName" json:"displayName"`
	Description          string                 `yaml:"description" json:"description"`
	Category             string                 `yaml:"category" json:"category"`
	Version              string                 `yaml:"version" json:"version"`
	TaskType             string                 `yaml:"taskType" json:"taskType"`
	ImplementationStatus string                 `yaml:"implementationStatus" json:"implementationStatus"`
	InputSchema          map[string]interface{} `yaml:"inputSchema" json:"inputSchema"`
	OutputSchema         map[string]interface{} `yaml:"outputSchema" json:"outputSchema"`
	ErrorCodes           []string               `yaml:"errorCodes" json:"errorCodes"`
	Timeout              string                 `yaml:"timeout" json:"timeout"`
	Retries              int                    `yaml:"retries" json:"retries"`
	Workflows            []string               `yaml:"workflows" json:"workflows"`
	Tags                 []string               `yaml:"tags" json:"tags"`
}
