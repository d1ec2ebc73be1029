// Package likeapi is the HTTP client for the like/comment service.
//
// # Endpoints
//
//	GET  {base}/api/page/{key}   likes, total_likes, comments[{name, comment, time}], error
//	POST {base}/api/page/init    {page_key}            (idempotent, body ignored)
//	POST {base}/api/like         {page_key}            likes, total_likes, error
//	POST {base}/api/comment      {page_key, name, comment}  name, error
//
// The page key is path-escaped as a single segment, so keys containing
// slashes or query characters round-trip unchanged. Every request carries
// Content-Type: application/json and, when a tenant is configured, the
// X-Tenant-ID header.
//
// # Normalization
//
// The service has returned likes under two field names and in several JSON
// types. FetchPageState and SubmitLike use the first of likes/total_likes that
// reads as a number (see Count) and fall back to 0. Missing comment lists
// become empty slices.
//
// # Errors
//
// Transport failures, non-2xx statuses (*APIError) and undecodable bodies
// (*DecodeError) are returned as errors. An "error" field containing the word
// "limit" on a like submission is quota exhaustion: it is reported as
// LikeResult.LimitExceeded, not as an error, whatever the HTTP status.
//
// FetchPageState and InitPage are retried on transport errors and 5xx
// responses with a short bounded backoff. SubmitLike and SubmitComment are
// sent exactly once.
package likeapi
