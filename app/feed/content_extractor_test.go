package feed

import (
	"strings"
	"testing"
)

func TestContentExtractor_Run_ValidHTML(t *testing.T) {
	extractor := NewContentExtractor()

	htmlContent := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Test Article</title>
	</head>
	<body>
		<header>
			<h1>Site Header</h1>
			<nav>Navigation</nav>
		</header>
		<main>
			<article>
				<h1>Main Article Title</h1>
				<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
				<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
				<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
			</article>
		</main>
		<footer>
			<p>Copyright 2024</p>
		</footer>
	</body>
	</html>
	`

	result, err := extractor.Run([]byte(htmlContent))

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if result == "" {
		t.Errorf("Expected non-empty result")
	}

	if !strings.Contains(result, "main content of the article") {
		t.Errorf("Expected extracted content to contain the article body")
	}
}

func TestContentExtractor_Run_EmptyInput(t *testing.T) {
	extractor := NewContentExtractor()

	if _, err := extractor.Run(nil); err == nil {
		t.Error("Expected error for empty input")
	}
}
