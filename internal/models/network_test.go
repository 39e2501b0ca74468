package models

import (
	"testing"
)

func TestNetwork_Validate(t *testing.T) {
	tests := []struct {
		name    string
		network Network
		wantErr bool
	}{
		{
			name: "Valid network",
			network: Network{
				Name:       "alpha",
				OwnerGuild: "100000000000000001",
			},
			wantErr: false,
		},
		{
			name: "Empty name",
			network: Network{
				Name:       "",
				OwnerGuild: "100000000000000001",
			},
			wantErr: true,
		},
		{
			name: "Name too short",
			network: Network{
				Name:       "a",
				OwnerGuild: "100000000000000001",
			},
			wantErr: true,
		},
		{
			name: "Name too long",
			network: Network{
				Name:       "this is a network name that keeps going well past the maximum allowed length of one hundred characters",
				OwnerGuild: "100000000000000001",
			},
			wantErr: true,
		},
		{
			name: "Missing owner guild",
			network: Network{
				Name:       "alpha",
				OwnerGuild: "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.network.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Network.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
