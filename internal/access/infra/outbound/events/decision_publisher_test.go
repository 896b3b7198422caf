package events

import (
	"context"
	"encoding/json"
	"testing"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	"github.com/davicafu/hexacrud/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDecisionPublisher_Record(t *testing.T) {
	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e sharedEvents.IntegrationEvent) bool {
		var data sharedEvents.AccessDecided
		if json.Unmarshal(e.Data, &data) != nil {
			return false
		}
		return e.Type == accessDomain.AccessDecided &&
			e.Key == "u1" &&
			data.Permission == "blog:update" &&
			!data.Allowed &&
			data.Reason == string(accessDomain.ReasonAccessDenied)
	})).Return(nil).Once()

	d := accessDomain.Deny(accessDomain.ReasonAccessDenied, "u1", accessDomain.ResourceBlog, accessDomain.ActionUpdate)
	err := NewDecisionPublisher(publisher).Record(context.Background(), d)

	assert.NoError(t, err)
	publisher.AssertExpectations(t)
}
