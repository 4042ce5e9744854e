package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter(t *testing.T) {
	t.Run("最大長が0以下はエラー", func(t *testing.T) {
		_, err := NewSplitter(0, 0)
		require.Error(t, err)
	})

	t.Run("オーバーラップが最大長以上はエラー", func(t *testing.T) {
		_, err := NewSplitter(100, 100)
		require.Error(t, err)

		_, err = NewSplitter(100, -1)
		require.Error(t, err)
	})
}

func TestSplit(t *testing.T) {
	t.Run("最大長以下のテキストはそのまま1チャンクになる", func(t *testing.T) {
		s, err := NewSplitter(100, 20)
		require.NoError(t, err)

		chunks := s.Split("short text")
		require.Len(t, chunks, 1)
		assert.Equal(t, "short text", chunks[0])
	})

	t.Run("空文字列は空の結果を返す", func(t *testing.T) {
		s, err := NewSplitter(100, 20)
		require.NoError(t, err)
		assert.Empty(t, s.Split(""))
	})

	t.Run("すべてのチャンクが最大長に収まる", func(t *testing.T) {
		s, err := NewSplitter(50, 10)
		require.NoError(t, err)

		text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
		chunks := s.Split(text)
		require.NotEmpty(t, chunks)
		for i, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), 50, "chunk %d", i)
		}
	})

	t.Run("隣接チャンクは前チャンクの末尾と同じ文字列で始まる", func(t *testing.T) {
		s, err := NewSplitter(40, 10)
		require.NoError(t, err)

		text := strings.Repeat("Sentence one. Sentence two. Sentence three. ", 10)
		chunks := s.Split(text)
		require.Greater(t, len(chunks), 1)

		for i := 1; i < len(chunks); i++ {
			prev := []rune(chunks[i-1])
			seed := string(prev[len(prev)-10:])
			assert.True(t, strings.HasPrefix(chunks[i], seed),
				"chunk %d must start with the last 10 chars of chunk %d", i, i-1)
		}
	})

	t.Run("オーバーラップ0なら結合で元のテキストに戻る", func(t *testing.T) {
		s, err := NewSplitter(30, 0)
		require.NoError(t, err)

		text := "First paragraph.\n\nSecond paragraph, with a comma. Third sentence! Done? Yes."
		chunks := s.Split(text)
		require.Greater(t, len(chunks), 1)
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("段落境界が文境界より優先される", func(t *testing.T) {
		s, err := NewSplitter(30, 0)
		require.NoError(t, err)

		text := "Aaaa aaaa aaaa.\n\nBbbb bbbb bbbb."
		chunks := s.Split(text)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Aaaa aaaa aaaa.\n\n", chunks[0])
		assert.Equal(t, "Bbbb bbbb bbbb.", chunks[1])
	})

	t.Run("境界のないテキストは文字単位で切られる", func(t *testing.T) {
		s, err := NewSplitter(10, 0)
		require.NoError(t, err)

		// マルチバイト文字でもrune単位で数える
		text := strings.Repeat("あ", 25)
		chunks := s.Split(text)
		require.Len(t, chunks, 3)
		assert.Equal(t, strings.Repeat("あ", 10), chunks[0])
		assert.Equal(t, strings.Repeat("あ", 10), chunks[1])
		assert.Equal(t, strings.Repeat("あ", 5), chunks[2])
	})
}
