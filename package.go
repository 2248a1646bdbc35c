// Tryon2go is a Go client and small web front end for a hosted virtual try-on model.
// It uploads a model photo and a garment photo to the hosted storage service, submits
// a single try-on job to the hosted queue, relays queue status updates as progress
// text, and hands back the generated result image URLs.
package tryon2go
