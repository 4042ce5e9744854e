package ask

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinford/doc-rag/internal/core/retrieval"
)

// contextEntry はプロンプトに埋め込むチャンク情報。
// フィールド名は回答モデルが出典を参照しやすいよう安定させている。
type contextEntry struct {
	VectorID       string  `json:"vector_id"`
	RelevanceScore float64 `json:"relevance_score"`
	Content        string  `json:"content"`
	Filename       string  `json:"filename"`
	PageNumber     *int    `json:"page_number"`
}

// BuildPrompt はRAG質問応答用のプロンプトを構築する。
// 検索済みコンテキストをインデント付きJSONとして埋め込み、質問を添える。
func BuildPrompt(question string, contexts []retrieval.RetrievedContext) (string, error) {
	entries := make([]contextEntry, 0, len(contexts))
	for _, c := range contexts {
		entries = append(entries, contextEntry{
			VectorID:       c.VectorID.String(),
			RelevanceScore: c.RelevanceScore,
			Content:        c.Content,
			Filename:       c.Filename,
			PageNumber:     c.PageNumber,
		})
	}

	contextJSON, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal contexts: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Answer the following question based on the provided context.\n\n")
	sb.WriteString("If you reference information from the context, cite the filename and page number in your answer.\n")
	sb.WriteString("If the context does not contain the answer, say so instead of guessing.\n\n")
	sb.WriteString("Context:\n")
	sb.Write(contextJSON)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return sb.String(), nil
}

// SourcesFrom は実際に検索されたコンテキストから出典リストを導出する。
// ランク順を保ちながらファイル名を重複排除する。
func SourcesFrom(contexts []retrieval.RetrievedContext) []string {
	seen := make(map[string]struct{}, len(contexts))
	sources := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if _, ok := seen[c.Filename]; ok {
			continue
		}
		seen[c.Filename] = struct{}{}
		sources = append(sources, c.Filename)
	}
	return sources
}
