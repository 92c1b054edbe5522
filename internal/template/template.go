package template

// RenderResult contains a rendered email template
type RenderResult struct {
	Subject   string `json:"subject"`
	Preheader string `json:"preheader"`
	Body      string `json:"body"`
}

// Fields are the parts of an email template that may carry merge fields
type Fields struct {
	Subject   string
	Preheader string
	Body      string
}
