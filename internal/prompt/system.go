// Package prompt builds the system and meta prompts sent to completion
// providers, folding in learned user preferences.
package prompt

// Schema keys with dedicated instructions.
const (
	SchemaOpenAIFunction = "openai-function"
	SchemaLangChain      = "langchain"
	SchemaAgentPrompt    = "agent-prompt"
	SchemaAnthropicTool  = "anthropic-tool"
)

// Schemas lists the schema keys with dedicated instructions.
var Schemas = []string{SchemaOpenAIFunction, SchemaLangChain, SchemaAgentPrompt, SchemaAnthropicTool}

const basePrompt = "You are an expert at converting natural language prompts into structured JSON formats for AI systems. Always return valid JSON only, no additional text or explanations. "

var schemaInstructions = map[string]string{
	SchemaOpenAIFunction: "Convert the user's prompt into OpenAI Function Calling format. Return a valid JSON object with name, description, and parameters fields.",
	SchemaLangChain:      "Convert the user's prompt into LangChain tool format. Return a valid JSON object with name, description, and input_schema fields.",
	SchemaAgentPrompt:    "Convert the user's prompt into a structured agent prompt format with role, task, instructions, and constraints.",
	SchemaAnthropicTool:  "Convert the user's prompt into Anthropic Claude tool format with name, description, and input_schema.",
}

const defaultInstruction = "Convert the user's prompt into a well-structured JSON format that best represents the intent and requirements."

// SystemPrompt returns the base system prompt for schema.
func SystemPrompt(schema string) string {
	if instr, ok := schemaInstructions[schema]; ok {
		return basePrompt + instr
	}
	return basePrompt + defaultInstruction
}
