// Package ingestion turns a URL into a structured, indexed document.
//
// The Pipeline type runs the full chain for one URL: fetch the page,
// extract the article text, structure it with an LLM, persist the
// document, chunk the body, embed the chunks, and replace the document's
// vectors in the index.
//
// Re-ingesting a URL is an upsert: the document ID derives from the URL,
// the stored document is replaced in place, and the document's old
// vectors are deleted before the new ones are inserted. Ingestions for
// the same URL are serialized with a per-document lock; different URLs
// proceed concurrently.
//
// The two stores are not updated atomically. A failure between persist
// and index leaves a document with missing or partial vectors; readers
// tolerate that state and re-running ingestion for the URL repairs it.
package ingestion
