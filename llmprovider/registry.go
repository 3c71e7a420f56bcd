package llmprovider

// RegisterDefaultProviders populates the registry with every vendor
// this module ships, called once at startup.
func RegisterDefaultProviders() {
	RegisterProvider("openai", NewOpenAIProvider)
	RegisterProvider("gemini", NewGeminiProvider)
}
