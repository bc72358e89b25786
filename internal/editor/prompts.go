package editor

import "fmt"

// editSystemPrompt frames the model as the maintainer of one self-contained
// document. The merge keeps only the returned root document, so the prompt
// insists on a complete file rather than a fragment or diff.
const editSystemPrompt = `You are an expert front-end developer maintaining a single-file web app prototype.
The app is one self-contained HTML document with inline CSS and JavaScript.

Rules:
1. Return the COMPLETE updated HTML document, from <!DOCTYPE html> to </html>.
2. Never return a fragment, a diff, or an explanation.
3. Keep everything the instruction does not ask you to change.
4. No Markdown code fences.`

const editPromptTemplate = `Current document:

%s

Instruction: %s

Return the complete updated HTML document.`

const appSystemPrompt = `You are an expert front-end developer building a single-file web app prototype.
You produce one self-contained HTML document with inline CSS in a <style> block and inline JavaScript in a <script> block.

Rules:
1. Return the COMPLETE HTML document, from <!DOCTYPE html> to </html>.
2. No external assets, build steps, or frameworks. Vanilla HTML, CSS, and JavaScript only.
3. The app must be interactive and usable exactly as rendered.
4. No Markdown code fences.`

const appPromptTemplate = `Build the first working version of this app:

%s

Return the complete HTML document.`

// TitleMaxLength is the maximum length in runes for generated project titles.
const TitleMaxLength = 50

var titlePrompt = fmt.Sprintf(`Generate a concise title (max %d characters) for a web app project based on this idea.`, TitleMaxLength) + `
The title should capture what the app does.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Idea: %s

Title:`
