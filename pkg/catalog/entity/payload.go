package entity

// Payload is the enriched, role-specific part of an asset. There is one
// payload per held role.
type Payload interface {
	Role() Role
}

// DatasetPayload describes the dataset role.
type DatasetPayload struct {
	RowsCount      *int64 `json:"rowsCount,omitempty"`
	FieldsCount    int    `json:"fieldsCount"`
	ConsumersCount int64  `json:"consumersCount"`
}

// TransformerPayload describes the transformer role.
type TransformerPayload struct {
	SourceCodeURL string     `json:"sourceCodeUrl,omitempty"`
	Sources       []AssetRef `json:"sourceList"`
	Targets       []AssetRef `json:"targetList"`
}

// LinkedURL is a named link attached to a quality test.
type LinkedURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Expectation describes what a quality test asserts.
type Expectation struct {
	Type       string            `json:"type"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// QualityTestPayload describes the quality test role. LatestRun and Severity
// are nil when no run or severity is recorded.
type QualityTestPayload struct {
	SuiteName   string      `json:"suiteName,omitempty"`
	SuiteURL    string      `json:"suiteUrl,omitempty"`
	LinkedURLs  []LinkedURL `json:"linkedUrlList,omitempty"`
	Expectation Expectation `json:"expectation"`
	Datasets    []AssetRef  `json:"datasetsList"`
	LatestRun   *TaskRun    `json:"latestRun,omitempty"`
	Severity    *Severity   `json:"severity,omitempty"`
}

// ConsumerPayload describes the consumer role.
type ConsumerPayload struct {
	Inputs []AssetRef `json:"inputList"`
}

// InputPayload describes the input role.
type InputPayload struct {
	Outputs []AssetRef `json:"outputList"`
}

// GroupPayload describes the group role.
type GroupPayload struct {
	Entities    []AssetRef `json:"entitiesList"`
	ItemsCount  int64      `json:"itemsCount"`
	HasChildren bool       `json:"hasChildren"`
}

func (*DatasetPayload) Role() Role     { return RoleDataset }
func (*TransformerPayload) Role() Role { return RoleTransformer }
func (*QualityTestPayload) Role() Role { return RoleQualityTest }
func (*ConsumerPayload) Role() Role    { return RoleConsumer }
func (*InputPayload) Role() Role       { return RoleInput }
func (*GroupPayload) Role() Role       { return RoleGroup }
