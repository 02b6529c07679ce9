package metrics

import "time"

// Range is the time window of a datasource query.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Query struct {
	PanelID       int      `json:"panelId"`
	Range         Range    `json:"range"`
	IntervalMS    int64    `json:"intervalMs"`
	Targets       []Target `json:"targets"`
	MaxDataPoints int      `json:"maxDataPoints"`
	AdhocFilters  []Filter
}

type Target struct {
	RefID  string                 `json:"refId"`
	Target string                 `json:"target"`
	Type   string                 `json:"type"`
	Data   map[string]interface{} `json:"data"`
}

type Filter struct {
	Key      string `json:"key"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type Tag struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnnotationQuery struct {
	Range      Range `json:"range"`
	Annotation Annotation
}

type Annotation struct {
	Name   string `json:"name"`
	Enable bool   `json:"enable"`
	Query  string `json:"query"`
}

type AnnotationInstance struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Time     int64    `json:"time"`
	IsRegion bool     `json:"isRegion"`
	TimeEnd  int64    `json:"timeEnd"`
	Tags     []string `json:"tags"`
}

// Series is one named curve; datapoints are [value, index] pairs.
type Series struct {
	Target     string      `json:"target"`
	DataPoints [][]float64 `json:"datapoints"`
}
