package model

// Action is the operation a tool performs on every file of a batch.
type Action string

const (
	ActionConvert     Action = "convert"
	ActionResize      Action = "resize"
	ActionRotate      Action = "rotate"
	ActionWatermark   Action = "watermark"
	ActionCompress    Action = "compress"
	ActionZip         Action = "zip"
	ActionCrop        Action = "crop"
	ActionExtractText Action = "extract_text"
)

// Category groups tools by the kind of input and output they work with.
type Category string

const (
	CategoryImageToImage Category = "image_to_image"
	CategoryImageToPDF   Category = "image_to_pdf"
	CategoryPDFToImage   Category = "pdf_to_image"
	CategoryImageToZip   Category = "image_to_zip"
	CategoryImageToText  Category = "image_to_text"
)

// Tool is an immutable descriptor of one conversion or operation.
type Tool struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Icon     string   `json:"icon"`
	From     Format   `json:"from"`
	To       Format   `json:"to"`
	Action   Action   `json:"action"`
	Category Category `json:"category"`
}
