package client

import (
	"encoding/json"
	"testing"
	"time"

	"chatroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestLogin(t *testing.T) {
	c, _ := serve(t, func(ctx *fasthttp.RequestCtx) {
		var req models.LoginRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Password != "hunter22" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetBodyString(`{"error":"invalid credentials"}`)
			return
		}
		ctx.SetBodyString(`{"token":"access","refresh_token":"refresh","username":"alice","user_id":"u1"}`)
	})
	a := NewAuthClient(c, "http://chat.test", time.Second)

	res, err := a.Login(testContext(t), "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "access", res.Token)
	assert.Equal(t, "u1", res.UserID)

	_, err = a.Login(testContext(t), "alice", "wrong")
	requireStatus(t, err, fasthttp.StatusUnauthorized)
}

func TestLoginWithoutToken(t *testing.T) {
	c, _ := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{}`)
	})
	a := NewAuthClient(c, "http://chat.test", time.Second)
	_, err := a.Login(testContext(t), "alice", "pw")
	assert.Error(t, err)
}
