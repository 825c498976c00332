package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// Is 按 Code 比较, 使 WithMessage 之后的错误仍能被 errors.Is 识别
func (e Errno) Is(target error) bool {
	var t Errno
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithMessage 返回携带额外信息的同码错误
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: e.Message + ": " + msg}
}

// Decode tries to convert an error to Errno
// 包装过的错误 (fmt.Errorf %w) 返回原始 Code 和完整的错误链信息
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, err.Error()
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, err.Error()
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrNotFound         = Errno{Code: 10005, Message: "Not found"}
)

// Relay Errors (20000+)
var (
	ErrUnauthorized = Errno{Code: 20101, Message: "Unauthorized"}

	ErrAlreadyExists    = Errno{Code: 20201, Message: "Already exists"}
	ErrAlreadyActivated = Errno{Code: 20202, Message: "User already activated"}
	ErrKeyAlreadyExists = Errno{Code: 20203, Message: "Key already exists"}

	ErrInsufficientBalance = Errno{Code: 20301, Message: "Insufficient app balance for transaction costs"}
	ErrOverflow            = Errno{Code: 20302, Message: "Balance overflow"}
	ErrInsufficientDeposit = Errno{Code: 20303, Message: "Insufficient deposit for storage"}

	ErrInvalidSignature = Errno{Code: 20401, Message: "Invalid signature"}
	ErrInvalidEncoding  = Errno{Code: 20402, Message: "Invalid encoding"}
	ErrKeyNotRecognized = Errno{Code: 20403, Message: "Public key not recognized"}
	ErrBundleNotFound   = Errno{Code: 20404, Message: "User not found"}

	ErrSigningFailed      = Errno{Code: 20501, Message: "Failed to get signature from MPC contract"}
	ErrMalformedSignature = Errno{Code: 20502, Message: "Malformed signature"}
	ErrRelayFailed        = Errno{Code: 20503, Message: "Relay call failed"}
)

// IsAlreadyExists 三种重复注册错误都属于 AlreadyExists
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyActivated) ||
		errors.Is(err, ErrKeyAlreadyExists)
}
