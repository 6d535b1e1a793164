package builtin

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Generators assign a fresh value to the content variable named by their
// first argument: "$uuid: requestId", "$random: n, 1, 6".

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func assign(e *Env, call *Call, value string) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("%s requires a variable name", call.Name)
	}
	e.Store.SetContent(call.Args[0], value)
	return nil
}

func intArg(call *Call, i, def int) (int, error) {
	if len(call.Args) <= i {
		return def, nil
	}
	v, err := strconv.Atoi(call.Args[i])
	if err != nil {
		return 0, fmt.Errorf("%s: argument %q is not a valid integer", call.Name, call.Args[i])
	}
	return v, nil
}

func funcUUID(e *Env, call *Call) error {
	return assign(e, call, uuid.New().String())
}

func funcNow(e *Env, call *Call) error {
	return assign(e, call, time.Now().UTC().Format(time.RFC3339))
}

func funcTimestamp(e *Env, call *Call) error {
	return assign(e, call, strconv.FormatInt(time.Now().Unix(), 10))
}

func funcTimestampMs(e *Env, call *Call) error {
	return assign(e, call, strconv.FormatInt(time.Now().UnixMilli(), 10))
}

func funcDate(e *Env, call *Call) error {
	format := "2006-01-02"
	if len(call.Args) >= 2 {
		format = call.Args[1]
	}
	return assign(e, call, time.Now().UTC().Format(format))
}

func funcRandom(e *Env, call *Call) error {
	min, err := intArg(call, 1, 0)
	if err != nil {
		return err
	}
	max, err := intArg(call, 2, 100)
	if err != nil {
		return err
	}
	if max < min {
		return fmt.Errorf("random: max %d is below min %d", max, min)
	}
	return assign(e, call, strconv.Itoa(rand.Intn(max-min+1)+min))
}

func funcRandomString(e *Env, call *Call) error {
	length, err := intArg(call, 1, 16)
	if err != nil {
		return err
	}
	if length < 0 {
		return fmt.Errorf("randomString: negative length %d", length)
	}
	return assign(e, call, randomString(length, alphanumeric))
}

func funcRandomEmail(e *Env, call *Call) error {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return assign(e, call, fmt.Sprintf("%s@%s.com", user, domain))
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
