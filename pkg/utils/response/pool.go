package response

import "sync"

// responsePool recycles Response values across requests. Handlers write the
// envelope and release it immediately after serialization, so pooling keeps
// the hot path allocation-free.
var responsePool = sync.Pool{
	New: func() interface{} {
		return &Response{}
	},
}

// Acquire returns a zeroed Response from the pool.
func Acquire() *Response {
	return responsePool.Get().(*Response)
}

// Release resets the response and returns it to the pool. The response must
// not be used after release.
func Release(r *Response) {
	if r == nil {
		return
	}
	r.Code = 0
	r.Message = ""
	r.Data = nil
	r.RequestID = ""
	responsePool.Put(r)
}
