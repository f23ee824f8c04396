package thrippy

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	thrippypb "github.com/tzrikka/thrippy-api/thrippy/v1"
)

type server struct {
	thrippypb.UnimplementedThrippyServiceServer
	resp *thrippypb.GetCredentialsResponse
	err  error
}

func (s *server) GetCredentials(_ context.Context, _ *thrippypb.GetCredentialsRequest) (*thrippypb.GetCredentialsResponse, error) {
	if s.resp == nil && s.err == nil {
		return thrippypb.GetCredentialsResponse_builder{}.Build(), nil
	}
	return s.resp, s.err
}

func TestLinkSecrets(t *testing.T) {
	tests := []struct {
		name    string
		resp    *thrippypb.GetCredentialsResponse
		respErr error
		want    map[string]string
		wantErr bool
	}{
		{
			name: "nil",
		},
		{
			name:    "grpc_error",
			respErr: errors.New("error"),
			wantErr: true,
		},
		{
			name: "no_secrets",
			resp: thrippypb.GetCredentialsResponse_builder{}.Build(),
		},
		{
			name:    "link_not_found",
			respErr: status.Error(codes.NotFound, "link not found"),
		},
		{
			name: "happy_path",
			resp: thrippypb.GetCredentialsResponse_builder{
				Credentials: map[string]string{"aaa": "111", "bbb": "222"},
			}.Build(),
			want: map[string]string{"aaa": "111", "bbb": "222"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lis, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatal(err)
			}
			s := grpc.NewServer()
			thrippypb.RegisterThrippyServiceServer(s, &server{resp: tt.resp, err: tt.respErr})
			go func() {
				_ = s.Serve(lis)
			}()
			defer s.Stop()

			got, err := LinkSecrets(t.Context(), lis.Addr().String(), insecure.NewCredentials(), "link ID")
			if (err != nil) != tt.wantErr {
				t.Errorf("LinkSecrets() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LinkSecrets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlack(t *testing.T) {
	tests := []struct {
		name    string
		secrets map[string]string
		want    SlackSecrets
	}{
		{
			name: "nil",
		},
		{
			name: "bot_token_template",
			secrets: map[string]string{
				"bot_token":      "xoxb-1",
				"signing_secret": "s3cr3t",
			},
			want: SlackSecrets{BotToken: "xoxb-1", SigningSecret: "s3cr3t"},
		},
		{
			name: "oauth_template",
			secrets: map[string]string{
				"access_token":   "xoxb-2",
				"client_id":      "123.456",
				"client_secret":  "shh",
				"signing_secret": "s3cr3t",
			},
			want: SlackSecrets{BotToken: "xoxb-2", ClientID: "123.456", ClientSecret: "shh", SigningSecret: "s3cr3t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slack(tt.secrets); got != tt.want {
				t.Errorf("Slack() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
