// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package testutil

import (
	"errors"
	"fmt"
	"reflect"

	. "gopkg.in/check.v1"
)

type hasKeyChecker struct {
	*CheckerInfo
}

// HasKey checks that the supplied map has the expected key.
var HasKey = &hasKeyChecker{
	&CheckerInfo{Name: "HasKey", Params: []string{"map", "key"}}}

func (checker *hasKeyChecker) Check(params []interface{}, names []string) (result bool, error string) {
	m := reflect.ValueOf(params[0])
	if m.Kind() != reflect.Map {
		return false, names[0] + " is not a map"
	}

	k := reflect.ValueOf(params[1])
	if k.Type() != m.Type().Key() {
		return false, names[1] + " has an unexpected type"
	}

	return m.MapIndex(k).IsValid(), ""
}

type inSliceChecker struct {
	*CheckerInfo
	sub Checker
}

// InSlice checks that the obtained value passes the supplied checker against
// at least one of the elements of the expected slice.
func InSlice(checker Checker) Checker {
	return &inSliceChecker{
		CheckerInfo: &CheckerInfo{
			Name:   fmt.Sprintf("InSlice(%s)", checker.Info().Name),
			Params: []string{"obtained", "[]expected"}},
		sub: checker}
}

func (checker *inSliceChecker) Check(params []interface{}, names []string) (result bool, error string) {
	if len(checker.sub.Info().Params) != 2 {
		return false, "InSlice can only be used with checkers that require 2 parameters"
	}

	slice := reflect.ValueOf(params[1])
	if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
		return false, names[1] + " has the wrong kind"
	}

	for i := 0; i < slice.Len(); i++ {
		if result, _ := checker.sub.Check([]interface{}{params[0], slice.Index(i).Interface()}, names); result {
			return true, ""
		}
	}
	return false, ""
}

type isTrueChecker struct {
	*CheckerInfo
}

// IsTrue checks that the value is true.
var IsTrue Checker = &isTrueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"value"}}}

func (checker *isTrueChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value := reflect.ValueOf(params[0])
	if value.Kind() != reflect.Bool {
		return false, names[0] + " is not a bool"
	}
	return value.Bool(), ""
}

type isFalseChecker struct {
	*CheckerInfo
}

// IsFalse checks that the value is false.
var IsFalse Checker = &isFalseChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"value"}}}

func (checker *isFalseChecker) Check(params []interface{}, names []string) (result bool, error string) {
	value := reflect.ValueOf(params[0])
	if value.Kind() != reflect.Bool {
		return false, names[0] + " is not a bool"
	}
	return !value.Bool(), ""
}

type convertibleToChecker struct {
	*CheckerInfo
}

// ConvertibleTo checks that the dynamic type of value is convertible to the type
// of sample.
var ConvertibleTo Checker = &convertibleToChecker{
	&CheckerInfo{Name: "ConvertibleTo", Params: []string{"value", "sample"}}}

func (checker *convertibleToChecker) Check(params []interface{}, names []string) (result bool, error string) {
	if params[0] == nil || params[1] == nil {
		return false, ""
	}
	return reflect.TypeOf(params[0]).ConvertibleTo(reflect.TypeOf(params[1])), ""
}

type errorIsChecker struct {
	*CheckerInfo
}

// ErrorIs checks that errors.Is(value, expected) returns true.
var ErrorIs Checker = &errorIsChecker{
	&CheckerInfo{Name: "ErrorIs", Params: []string{"value", "expected"}}}

func (checker *errorIsChecker) Check(params []interface{}, names []string) (result bool, errStr string) {
	err, ok := params[0].(error)
	if !ok {
		return false, names[0] + " is not an error"
	}
	expected, ok := params[1].(error)
	if !ok {
		return false, names[1] + " is not an error"
	}
	return errors.Is(err, expected), ""
}
