// Package gemini normalizes the whole-candidate SSE events of Google's
// Gemini streamGenerateContent endpoint into the shared chunk model.
//
// The entry point is [New], which reads GEMINI_API_KEY and
// GEMINI_API_BASE_URL from the environment.
// [GeminiProvider.StreamGenerateContent] returns an [ai.ChunkStream]. Gemini
// events carry full candidate content arrays rather than per-field deltas,
// so the adapter concatenates each event's text parts into one delta and
// registers function calls under synthetic ids derived from their names.
package gemini
