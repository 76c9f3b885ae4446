// internal/domain/cart/gateway_port_test.go
package cart

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCookies(t *testing.T) {
	merged := MergeCookies("a=1", []string{"cart=xyz; Path=/; HttpOnly", "sig=s; Secure"})
	assert.Equal(t, "a=1; cart=xyz; sig=s", merged)

	assert.Equal(t, "cart=xyz", MergeCookies("", []string{"cart=xyz; Path=/"}))
	assert.Equal(t, "a=1", MergeCookies("a=1", nil))
	assert.Equal(t, "a=1", MergeCookies(" a=1 ", []string{"   "}))
}

func TestWriteSetCookies(t *testing.T) {
	h := http.Header{}
	WriteSetCookies(h, []string{"cart=tok; Path=/", "", "cartId=gid; Secure"})
	assert.Equal(t, []string{"cart=tok; Path=/", "cartId=gid; Secure"}, h.Values("Set-Cookie"))
}
