// Package segment splits documents into token-bounded, topically coherent
// chunks prior to embedding.
//
// The pipeline runs in four stages:
//
//   - SentenceSplitter: normalised text into ordered sentences
//   - DetectBreakpoints: topic shifts from smoothed embedding similarity
//   - BuildSegments: sentences between breakpoints joined into segments
//   - Sizer: oversize bisection, greedy accumulation and tail merging
//
// Segmenter wires the stages together. It is safe for concurrent use:
// each call to Segment only touches its own inputs, and the embedding and
// token collaborators are the only suspension points.
//
// # Token bounds
//
// Every emitted chunk satisfies MinTokens <= Tokens <= MaxTokens except:
//
//   - a piece with no valid split point, reported with Oversized set;
//   - a leading chunk (or a whole document) shorter than MinTokens, which
//     has no predecessor to merge into;
//   - a short trailing chunk whose merge would exceed MaxTokens.
package segment
