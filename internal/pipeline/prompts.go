package pipeline

import (
	"fmt"
	"strings"

	"github.com/alexandria-ai/alexandria/internal/library"
	"github.com/alexandria-ai/alexandria/internal/search"
	"github.com/alexandria-ai/alexandria/internal/vectorindex"
)

const routerInstruction = `You are an expert at routing a user question to a vectorstore, a structured book catalog, web search, or a simple greeting.

The vectorstore contains the full text of books in the local library, such as Alice in Wonderland, Dracula, and other Project Gutenberg titles.

Use 'vectorstore' for questions about the content of these books.

Use 'find_books' when the user wants book recommendations or wants to find books by genre, author, title, publication year, or a description of the plot.

Use 'web_search' for everything else, especially current events.

If the user only greets (e.g., "hi", "hello"), use 'only_greet'.

Return JSON with a single key, datasource, that is 'web_search', 'vectorstore', 'find_books' or 'only_greet' depending on the question.`

const greetInstruction = `You are a friendly library assistant. The user is greeting you. Reply naturally and briefly, and offer to help with questions about books. Do not mention tools or retrieval.`

const graderInstruction = `You are a grader assessing relevance of a retrieved document to a user question.

If the document contains keyword(s) or semantic meaning related to the question, grade it as relevant.`

const graderPrompt = `Here is the retrieved document:

%s

Here is the user question:

%s

Carefully and objectively assess whether the document contains at least some information that is relevant to the question.

Return a single string, that is 'yes' or 'no' score to indicate whether the document contains at least some information that is relevant to the question. Do not provide any explanation or extra text.`

const ragPrompt = `You are an assistant for question-answering tasks.

Here is the context to use to answer the question:

%s

Think carefully about the above context.

Now, review the user question:

%s

Provide an answer to this question using only the above context.

Use three sentences maximum and keep the answer concise.

Answer:`

const fieldsExtractionPrompt = `You are extracting structured book search filters from a user request.

Known genres: %s
Known authors: %s

From the user request below, extract any of these fields that are explicitly mentioned or clearly implied:
- genres: list of genres, chosen from the known genres where possible
- authors: list of author names, chosen from the known authors where possible
- title: a book title or part of one
- year_from, year_to: publication year range (set both to the same value for a single year)
- summary: a free-text description of the plot or theme the user is looking for

Return JSON with only the fields that apply. Omit fields the request says nothing about. Do not invent values.

User request:

%s`

const findBooksAnswerPrompt = `You are a librarian recommending books.

Here are the books that matched the user's request:

%s

Now, review the user request:

%s

Write a short, natural recommendation based only on the books listed above. Mention each book's title and author. If the list says no books were found, say so politely and suggest the user broaden the request. Do not invent books.`

// insufficientContextAnswer is returned when neither local retrieval nor
// web search produced any usable evidence. The pipeline never asks the
// model to answer from thin air.
const insufficientContextAnswer = "I could not find enough information to answer that question, either in the library or on the web."

const noBooksFoundMarker = "No books were found matching the request."

// buildContext concatenates retrieved chunks and search snippets into the
// context block of the answer prompt. Returns "" when there is no
// evidence at all.
func buildContext(documents []vectorindex.Chunk, results []search.Result) string {
	var b strings.Builder
	for _, d := range documents {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		b.WriteString(d.Content)
		b.WriteString("\n\n")
	}
	for _, r := range results {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		if r.Title != "" {
			fmt.Fprintf(&b, "%s (%s):\n", r.Title, r.URL)
		}
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// formatBooks renders the matched books for the recommendation prompt.
func formatBooks(books []*library.Book) string {
	if len(books) == 0 {
		return noBooksFoundMarker
	}
	var b strings.Builder
	for _, book := range books {
		fmt.Fprintf(&b, "- %q by %s", book.Title, book.Author)
		if book.Genre != "" {
			fmt.Fprintf(&b, " (%s", book.Genre)
			if book.PublishedYear != 0 {
				fmt.Fprintf(&b, ", %d", book.PublishedYear)
			}
			b.WriteString(")")
		} else if book.PublishedYear != 0 {
			fmt.Fprintf(&b, " (%d)", book.PublishedYear)
		}
		if book.Summary != "" {
			fmt.Fprintf(&b, ": %s", book.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
