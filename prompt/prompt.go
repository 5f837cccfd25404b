package prompt

// EXTRACTION_INSTRUCTIONS is the system message of every extraction request.
// The crawled markdown follows as the user message.
const EXTRACTION_INSTRUCTIONS = "Extract the content from the following markdown"
