package models

import (
	"testing"
	"time"
)

func TestOpportunityExpired(t *testing.T) {
	live := Opportunity{ExpiresAt: time.Now().Add(time.Hour)}
	if live.Expired() {
		t.Error("future expiry should not read as expired")
	}

	dead := Opportunity{ExpiresAt: time.Now().Add(-time.Minute)}
	if !dead.Expired() {
		t.Error("past expiry should read as expired")
	}
}

func TestOpportunityFromSlack(t *testing.T) {
	channel := "C123"
	message := "1699.0001"

	var fromWeb Opportunity
	if fromWeb.FromSlack() {
		t.Error("web submission should not read as chat-sourced")
	}

	fromChat := Opportunity{SlackChannelID: &channel, SlackMessageID: &message}
	if !fromChat.FromSlack() {
		t.Error("channel+message origin should read as chat-sourced")
	}

	partial := Opportunity{SlackChannelID: &channel}
	if partial.FromSlack() {
		t.Error("a channel without a message id is not a chat origin")
	}
}

func TestValidTagColor(t *testing.T) {
	for _, color := range TagColors {
		if !ValidTagColor(color) {
			t.Errorf("palette color %q rejected", color)
		}
	}

	for _, color := range []string{"", "magenta", "BLUE", " blue"} {
		if ValidTagColor(color) {
			t.Errorf("non-palette color %q accepted", color)
		}
	}
}

func TestMemberActiveAdmin(t *testing.T) {
	now := time.Now()

	admin := Member{Role: RoleAdmin}
	if !admin.ActiveAdmin() {
		t.Error("non-deleted admin should be active")
	}

	deletedAdmin := Member{Role: RoleAdmin, DeletedAt: &now}
	if deletedAdmin.ActiveAdmin() {
		t.Error("deleted admin should not be active")
	}

	member := Member{Role: RoleMember}
	if member.ActiveAdmin() {
		t.Error("plain member is not an admin")
	}
}
