package qa

import (
	"errors"
	"fmt"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// credentialNames maps credential variables to the service they unlock.
var credentialNames = map[string]string{
	"OPENAI_API_KEY":       "OpenAI API key",
	"AZURE_OPENAI_API_KEY": "Azure OpenAI API key",
	"GOOGLE_API_KEY":       "Google API key",
	"ARK_API_KEY":          "Ark API key",
	"EMBEDDING_API_KEY":    "embedding API key",
}

// Describe turns err into a one-line message for the person using the CLI
// or the web page. It returns "" for a nil error.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, rag.ErrConfiguration):
		setting := rag.SettingOf(err)
		if name, ok := credentialNames[setting]; ok {
			return fmt.Sprintf("The %s is missing. Please set the %s environment variable in your .env file or environment.",
				name, setting)
		}
		return fmt.Sprintf("Configuration problem: %v", err)
	case errors.Is(err, ErrEmptyQuestion):
		return "Please enter a question."
	case errors.Is(err, ErrInvalidState):
		return "No document is ready. Process a PDF before asking questions."
	case errors.Is(err, rag.ErrExtraction):
		return fmt.Sprintf("Could not read text from the PDF: %v", err)
	case errors.Is(err, rag.ErrEmbedding):
		return fmt.Sprintf("The embedding service failed: %v", err)
	case errors.Is(err, rag.ErrSynthesis):
		return fmt.Sprintf("The language model failed to answer: %v", err)
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}
