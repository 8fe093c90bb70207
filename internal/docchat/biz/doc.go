// Package biz implements the business logic of the document chat service.
//
// The pipeline is split into focused components:
//   - Chunker: overlapping word-window splitting with position tracking
//   - Ingester: extraction, dedup, chunking and embedding of uploads
//   - DenseScorer / LexicalScorer: chunk ranking strategies
//   - Assembler: bounded context blocks and ordered conversation history
//   - Generator: prompt assembly and the model fallback chain
//   - ChatService: composes the above, drives a chat turn and persists it
package biz
