package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJpaEntityToPanacheEntity(t *testing.T) {
	src := `package com.example;

import jakarta.persistence.Entity;
import jakarta.persistence.GeneratedValue;
import jakarta.persistence.Id;

@Entity
public class Product {

    @Id
    @GeneratedValue
    private Long id;

    private String name;

    public Long getId() {
        return id;
    }

    public void setId(Long id) {
        this.id = id;
    }

    public String getName() {
        return name;
    }
}
`
	out := migrated(t, project{"Product.java": src}, "JpaEntityToPanacheEntity")["Product.java"]

	assert.Equal(t, `package com.example;

import io.quarkus.hibernate.orm.panache.PanacheEntity;
import jakarta.persistence.Entity;

@Entity
public class Product extends PanacheEntity {

    private String name;

    public String getName() {
        return name;
    }
}
`, out)
}

func TestJpaEntityLeftAlone(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "existing superclass",
			src: `package com.example;

import javax.persistence.Entity;
import javax.persistence.Id;

@Entity
public class Order extends Audited {

    @Id
    private Long id;
}
`,
		},
		{
			name: "not an entity",
			src: `package com.example;

import jakarta.persistence.Entity;
import jakarta.persistence.Id;

public class Dto {

    @Id
    private Long id;
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := migrated(t, project{"Model.java": tt.src}, "JpaEntityToPanacheEntity")["Model.java"]
			assert.Equal(t, tt.src, out)
		})
	}
}

func TestJavaxEntityKeepsOtherID(t *testing.T) {
	src := `package com.example;

import javax.persistence.Entity;
import javax.persistence.Id;

@Entity
public class Tag {

    @Id
    private String code;
}
`
	out := migrated(t, project{"Tag.java": src}, "JpaEntityToPanacheEntity")["Tag.java"]

	assert.Contains(t, out, "public class Tag extends PanacheEntity {")
	assert.Contains(t, out, "    @Id\n    private String code;")
	assert.Contains(t, out, "import javax.persistence.Id;")
}
