package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestDynamoKeyBuilders(t *testing.T) {
	if got := designPK("shop-1"); got != "DESIGN#shop-1" {
		t.Errorf("designPK() = %q, want %q", got, "DESIGN#shop-1")
	}
	if got := sigPK("shop-1"); got != "SIG#shop-1" {
		t.Errorf("sigPK() = %q, want %q", got, "SIG#shop-1")
	}
}

func TestIsConditionalCancel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "guard condition failed",
			err: &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("ConditionalCheckFailed")},
					{Code: aws.String("None")},
				},
			},
			want: true,
		},
		{
			name: "wrapped cancellation",
			err: fmt.Errorf("transact: %w", &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("ConditionalCheckFailed")},
				},
			}),
			want: true,
		},
		{
			name: "cancelled for another reason",
			err: &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("TransactionConflict")},
				},
			},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection reset"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConditionalCancel(tt.err); got != tt.want {
				t.Errorf("isConditionalCancel() = %v, want %v", got, tt.want)
			}
		})
	}
}
