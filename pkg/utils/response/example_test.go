package response_test

import (
	"fmt"

	"github.com/kart-io/docchat/pkg/errors"
	"github.com/kart-io/docchat/pkg/utils/response"
)

// The envelope is pooled; release it once it has been serialized.
func Example() {
	resp := response.Success(map[string]string{"status": "completed"})
	defer response.Release(resp)

	fmt.Printf("success=%v code=%d message=%s\n", resp.IsSuccess(), resp.Code, resp.Message)
	// Output: success=true code=0 message=success
}

func Example_error() {
	resp := response.Err(errors.ErrInvalidParam).WithRequestID("req-456")
	defer response.Release(resp)

	fmt.Printf("code=%d status=%d\n", resp.Code, resp.HTTPStatus())
	// Output: code=1001 status=400
}
